package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProgressSnapshot is a cached copy of a learner's progress record, shown
// while the server's copy loads.
type ProgressSnapshot struct {
	ent.Schema
}

func (ProgressSnapshot) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "progress_snapshots"}}
}

func (ProgressSnapshot) Mixin() []ent.Mixin {
	return []ent.Mixin{SequenceMixin{}}
}

func (ProgressSnapshot) Fields() []ent.Field {
	return []ent.Field{
		field.String("user_id").NotEmpty(),
		field.Int("current_day").Positive(),
		field.String("current_belt"),
		field.Text("completed_json").
			Comment("Sorted completed day numbers"),
		field.Int64("taken_at_ms"),
	}
}

func (ProgressSnapshot) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "sequence"),
	}
}
