package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
)

// Credential is the device's single saved session.
type Credential struct {
	ent.Schema
}

func (Credential) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "credentials"}}
}

func (Credential) Fields() []ent.Field {
	return []ent.Field{
		field.Text("token").
			Sensitive(),
		field.Text("user_json").
			Comment("Profile as returned by the server"),
		field.Int64("saved_at_ms"),
	}
}
