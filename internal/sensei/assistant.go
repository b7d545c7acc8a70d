package sensei

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/llm"
)

// Assistant answers one question in context.
type Assistant interface {
	Ask(ctx context.Context, question string, sc api.SenseiContext) (string, error)
}

// AskGateway is the backend's assistant endpoint.
type AskGateway interface {
	AskSensei(ctx context.Context, req api.SenseiRequest) (string, error)
}

// RemoteAssistant asks the backend.
type RemoteAssistant struct {
	gw AskGateway
}

// Remote returns an Assistant backed by the server.
func Remote(gw AskGateway) *RemoteAssistant {
	return &RemoteAssistant{gw: gw}
}

func (a *RemoteAssistant) Ask(ctx context.Context, question string, sc api.SenseiContext) (string, error) {
	return a.gw.AskSensei(ctx, api.SenseiRequest{Question: question, Context: sc})
}

// Purpose labels local assistant calls in the LLM request log.
const Purpose = "sensei"

const systemPrompt = `You are Sensei, a patient Python tutor on HackDojo, a coding dojo for young learners.
Guide the learner toward the answer with hints and questions. Never paste a complete solution to the exercise.
Refer to the lesson and the learner's code when they are given. Keep answers short and friendly.`

var answerSchema = &llm.Schema{
	Name:        "sensei-answer",
	Description: "A tutor's reply to a learner's question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": map[string]any{
				"type":        "string",
				"description": "The reply shown to the learner",
			},
		},
		"required":             []string{"response"},
		"additionalProperties": false,
	},
}

// LocalAssistant answers with a language model directly.
type LocalAssistant struct {
	provider llm.Provider
}

// Local returns an Assistant backed by provider.
func Local(provider llm.Provider) *LocalAssistant {
	return &LocalAssistant{provider: provider}
}

func (a *LocalAssistant) Ask(ctx context.Context, question string, sc api.SenseiContext) (string, error) {
	req := llm.Request{
		System:      systemPrompt,
		Schema:      answerSchema,
		MaxTokens:   400,
		Temperature: 0.3,
	}
	for _, ex := range sc.History {
		role := llm.RoleUser
		if ex.Sender == string(SenderAssistant) {
			role = llm.RoleAssistant
		}
		req.Messages = append(req.Messages, llm.Message{Role: role, Content: ex.Text})
	}
	req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: Prompt(question, sc)})

	resp, err := a.provider.Generate(llm.WithPurpose(ctx, Purpose), req)
	if err != nil {
		return "", err
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Response), nil
}

// Prompt renders the learner's situation and question as the final user
// turn. History is sent as separate turns and left out here.
func Prompt(question string, sc api.SenseiContext) string {
	sc.History = nil
	var b strings.Builder
	if ctxJSON, err := json.MarshalIndent(sc, "", "  "); err == nil && string(ctxJSON) != "{}" {
		fmt.Fprintf(&b, "Learner context:\n%s\n\n", ctxJSON)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
