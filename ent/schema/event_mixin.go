// Package schema declares the device store's entities. The store's table
// definitions mirror these declarations.
package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/mixin"
)

// SequenceMixin gives an entity the store-wide sequence number that orders
// appends across tables.
type SequenceMixin struct {
	mixin.Schema
}

func (SequenceMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("sequence").
			Immutable().
			Comment("Monotonically increasing store-wide sequence number"),
	}
}
