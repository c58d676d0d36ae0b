package store

import "sort"

// Kind is the scalar type a value is stored as.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
)

// Op is a single staged write. Delete removes the key regardless of Kind.
type Op struct {
	Key    string
	Kind   Kind
	Int    int64
	Float  float64
	String string
	Delete bool
}

// Batch stages writes for one atomic Store.Apply. A later write to the same
// key replaces the earlier one. The zero value is ready to use.
type Batch struct {
	ops   []Op
	index map[string]int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

func (b *Batch) put(op Op) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[op.Key]; ok {
		b.ops[i] = op
		return
	}
	b.index[op.Key] = len(b.ops)
	b.ops = append(b.ops, op)
}

// SetInt stages an integer write.
func (b *Batch) SetInt(key string, v int64) *Batch {
	b.put(Op{Key: key, Kind: KindInt, Int: v})
	return b
}

// SetFloat stages a float write.
func (b *Batch) SetFloat(key string, v float64) *Batch {
	b.put(Op{Key: key, Kind: KindFloat, Float: v})
	return b
}

// SetString stages a string write.
func (b *Batch) SetString(key, v string) *Batch {
	b.put(Op{Key: key, Kind: KindString, String: v})
	return b
}

// Delete stages removal of key.
func (b *Batch) Delete(key string) *Batch {
	b.put(Op{Key: key, Delete: true})
	return b
}

// Merge stages every operation of other after the ones already in b.
func (b *Batch) Merge(other *Batch) *Batch {
	if other == nil {
		return b
	}
	for _, op := range other.ops {
		b.put(op)
	}
	return b
}

// Len returns the number of distinct keys staged.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

// Ops returns the staged operations in staging order.
func (b *Batch) Ops() []Op {
	if b == nil {
		return nil
	}
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Lookup returns the staged operation for key, if any.
func (b *Batch) Lookup(key string) (Op, bool) {
	if b == nil || b.index == nil {
		return Op{}, false
	}
	i, ok := b.index[key]
	if !ok {
		return Op{}, false
	}
	return b.ops[i], true
}

// Keys returns the staged keys sorted ascending.
func (b *Batch) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.ops))
	for _, op := range b.ops {
		keys = append(keys, op.Key)
	}
	sort.Strings(keys)
	return keys
}
