package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/types"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	out chan published
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.out <- published{topic, payload.([]byte)}
	return doneToken{}
}

func TestPublishesOwnMessages(t *testing.T) {
	pub := &fakePublisher{make(chan published, 4)}
	h := New(pub, "drone1")

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	go h.Run(ctx, &wg, func(types.Message) {})

	h.Receive(types.CreateMessage(types.MessageTypeMissionProgress, "other", "*", types.MissionProgress{Status: "started"}))
	h.Receive(types.CreateMessage(types.MessageTypeChatRequest, "drone1", "*", types.ChatRequest{Text: "hi"}))
	h.Receive(types.CreateMessage(types.MessageTypeMissionProgress, "drone1", "*",
		types.MissionProgress{MissionType: mission.MissionTypeSurvey, Status: types.MissionStatusCompleted}))

	select {
	case p := <-pub.out:
		if p.topic != "/devices/drone1/events/mission-progress" {
			t.Fatalf("topic = %s", p.topic)
		}
		var sm types.StringMessage
		if err := json.Unmarshal(p.payload, &sm); err != nil {
			t.Fatal(err)
		}
		var progress types.MissionProgress
		if err := json.Unmarshal([]byte(sm.Message), &progress); err != nil {
			t.Fatal(err)
		}
		if progress.Status != types.MissionStatusCompleted || progress.MissionType != mission.MissionTypeSurvey {
			t.Fatalf("progress = %+v", progress)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}

	select {
	case p := <-pub.out:
		t.Fatalf("unexpected publish to %s", p.topic)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	wg.Wait()
}
