package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rincatpp/deepdrone/internal/intent"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is what every model backend returns.
type Result struct {
	Content string `json:"content"`
}

// Model is a text generation backend.
type Model interface {
	Generate(ctx context.Context, messages []ChatMessage) (Result, error)
}

// PlaceholderModel answers without any network access by running the
// keyword router over the last user message.
type PlaceholderModel struct{}

func (PlaceholderModel) Generate(ctx context.Context, messages []ChatMessage) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	text := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			text = messages[i].Content
			break
		}
	}

	in := intent.Classify(text)
	if !in.Matched {
		return Result{Content: "I can plan survey, inspection, delivery and custom square missions. Tell me what to fly and for how long."}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thought: I will create a %s mission plan for %g minutes.\n", in.MissionType, in.DurationMinutes)
	b.WriteString("```json\n")
	b.WriteString(intent.Render(in))
	b.WriteString("\n```")

	return Result{Content: b.String()}, nil
}
