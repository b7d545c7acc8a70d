package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ChatMessage is one line of a Sensei transcript.
type ChatMessage struct {
	ent.Schema
}

func (ChatMessage) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "chat_messages"}}
}

func (ChatMessage) Mixin() []ent.Mixin {
	return []ent.Mixin{SequenceMixin{}}
}

func (ChatMessage) Fields() []ent.Field {
	return []ent.Field{
		field.String("scope").
			Comment("session or lesson:<day>"),
		field.String("message_id").
			Unique(),
		field.Enum("sender").
			Values("user", "assistant"),
		field.Text("text"),
		field.Int64("sent_at_ms"),
	}
}

func (ChatMessage) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("scope", "sequence"),
	}
}
