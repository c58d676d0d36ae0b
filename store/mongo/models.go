package mongo

import (
	"time"

	"github.com/xraph/embers/store"
)

// saveDocument holds every key of one save slot.
type saveDocument struct {
	Slot      string                `bson:"_id"`
	Values    map[string]valueModel `bson:"values"`
	UpdatedAt time.Time             `bson:"updated_at"`
}

type valueModel struct {
	Kind   string  `bson:"kind"`
	Int    int64   `bson:"i,omitempty"`
	Float  float64 `bson:"f,omitempty"`
	String string  `bson:"s,omitempty"`
}

func toValueModel(op store.Op) valueModel {
	return valueModel{
		Kind:   string(op.Kind),
		Int:    op.Int,
		Float:  op.Float,
		String: op.String,
	}
}
