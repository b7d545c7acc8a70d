package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table layout for the device store, mirroring the entities in ent/schema.
// Declared with ent's schema types so migrations run through ent's migrate
// engine.

var (
	credentialsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "token", Type: field.TypeString, Size: 2147483647},
		{Name: "user_json", Type: field.TypeString, Size: 2147483647},
		{Name: "saved_at_ms", Type: field.TypeInt64},
	}
	credentialsTable = &schema.Table{
		Name:       "credentials",
		Columns:    credentialsColumns,
		PrimaryKey: []*schema.Column{credentialsColumns[0]},
	}

	progressSnapshotsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "user_id", Type: field.TypeString},
		{Name: "current_day", Type: field.TypeInt},
		{Name: "current_belt", Type: field.TypeString},
		{Name: "completed_json", Type: field.TypeString, Size: 2147483647},
		{Name: "taken_at_ms", Type: field.TypeInt64},
	}
	progressSnapshotsTable = &schema.Table{
		Name:       "progress_snapshots",
		Columns:    progressSnapshotsColumns,
		PrimaryKey: []*schema.Column{progressSnapshotsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "progresssnapshot_user_id_sequence",
				Columns: []*schema.Column{progressSnapshotsColumns[2], progressSnapshotsColumns[1]},
			},
		},
	}

	chatMessagesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "scope", Type: field.TypeString},
		{Name: "message_id", Type: field.TypeString},
		{Name: "sender", Type: field.TypeString},
		{Name: "text", Type: field.TypeString, Size: 2147483647},
		{Name: "sent_at_ms", Type: field.TypeInt64},
	}
	chatMessagesTable = &schema.Table{
		Name:       "chat_messages",
		Columns:    chatMessagesColumns,
		PrimaryKey: []*schema.Column{chatMessagesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "chatmessage_scope_sequence",
				Columns: []*schema.Column{chatMessagesColumns[2], chatMessagesColumns[1]},
			},
			{
				Name:    "chatmessage_message_id",
				Unique:  true,
				Columns: []*schema.Column{chatMessagesColumns[3]},
			},
		},
	}

	llmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "occurred_at_ms", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 2147483647},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647},
	}
	llmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmRequestEventsColumns,
		PrimaryKey: []*schema.Column{llmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "llmrequestevent_sequence",
				Unique:  true,
				Columns: []*schema.Column{llmRequestEventsColumns[1]},
			},
		},
	}

	tables = []*schema.Table{
		credentialsTable,
		progressSnapshotsTable,
		chatMessagesTable,
		llmRequestEventsTable,
	}
)
