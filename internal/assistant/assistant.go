package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/intent"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/missionplanner"
	log "github.com/sirupsen/logrus"
)

const maxHistory = 6

var systemPrompt = "You are DeepDrone, the mission assistant of a drone ground station. " +
	"Translate the operator's request into a mission intent. " +
	"Answer with a single JSON object and nothing else, in this form: " + intent.SchemaDescription + ". " +
	"Set execute to true only when the operator asks to fly the mission now."

// HomeProvider reports the reference location of the connected vehicle.
type HomeProvider interface {
	Home() (mission.Location, bool)
}

type Reply struct {
	Text    string
	Plan    *mission.MissionPlan
	Intent  intent.Intent
	Execute bool
	// Source is "model" when the model output was parsed and "keywords"
	// when the keyword router had to be used.
	Source string
}

type Assistant struct {
	model   Model
	home    HomeProvider
	mu      sync.Mutex
	history []ChatMessage
}

func New(model Model, home HomeProvider) *Assistant {
	return &Assistant{model: model, home: home}
}

// Chat answers one operator message. Plan synthesis does not depend on
// the vehicle: without a connected vehicle the plan has no reference.
func (a *Assistant) Chat(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, errors.New("empty message")
	}

	in, raw, source := a.understand(ctx, text)
	if !in.Matched {
		answer := raw
		if answer == "" {
			answer = "I can plan survey, inspection, delivery and custom square missions. Tell me what to fly and for how long."
		}
		a.remember(text, answer)
		return Reply{Text: answer, Intent: in, Source: source}, nil
	}

	req := missionplanner.Request{
		MissionType:     in.MissionType,
		DurationMinutes: in.DurationMinutes,
		Destination:     in.Destination,
	}
	home, connected := mission.Location{}, false
	if a.home != nil {
		home, connected = a.home.Home()
	}
	if connected {
		req.Reference = &home
	}

	plan, err := missionplanner.Plan(req)
	if err != nil {
		return Reply{}, errors.WithMessage(err, "could not plan mission")
	}

	reply := Reply{
		Plan:    &plan,
		Intent:  in,
		Execute: in.Execute && connected,
		Source:  source,
	}
	reply.Text = composeText(plan, in.Execute, connected)
	a.remember(text, reply.Text)

	return reply, nil
}

// understand asks the model for an intent and falls back to keyword
// matching when the model fails or answers outside the schema.
func (a *Assistant) understand(ctx context.Context, text string) (intent.Intent, string, string) {
	if a.model == nil {
		return intent.Classify(text), "", "keywords"
	}

	messages := []ChatMessage{{Role: RoleSystem, Content: systemPrompt}}
	a.mu.Lock()
	messages = append(messages, a.history...)
	a.mu.Unlock()
	messages = append(messages, ChatMessage{Role: RoleUser, Content: text})

	res, err := a.model.Generate(ctx, messages)
	if err != nil {
		log.Printf("Assistant: model failed, using keywords: %v", err)
		return intent.Classify(text), "", "keywords"
	}

	in, err := intent.ParseIntent(res.Content)
	if err != nil {
		log.WithField("content", res.Content).Debugf("Assistant: model answer not an intent: %v", err)
		return intent.Classify(text), res.Content, "keywords"
	}

	return in, res.Content, "model"
}

func (a *Assistant) remember(user, answer string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history,
		ChatMessage{Role: RoleUser, Content: user},
		ChatMessage{Role: RoleAssistant, Content: answer})
	if len(a.history) > 2*maxHistory {
		a.history = a.history[len(a.history)-2*maxHistory:]
	}
}

func composeText(plan mission.MissionPlan, execute bool, connected bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mission plan ready. %s", plan.Description)
	if plan.Reference != nil {
		fmt.Fprintf(&b, " Waypoints are relative to home %.6f, %.6f.", plan.Reference.Lat, plan.Reference.Lon)
	}
	switch {
	case execute && connected:
		b.WriteString(" Uploading and executing it now.")
	case execute:
		b.WriteString(" No vehicle is connected, so the mission was not flown. Connect a vehicle and ask again.")
	}
	return b.String()
}
