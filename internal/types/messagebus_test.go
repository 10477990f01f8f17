package types

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	received []Message
	first    *Message
}

func (r *recorder) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
	if r.first != nil {
		post(*r.first)
	}
}

func (r *recorder) Receive(message Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, message)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func TestMessageBusDeliversToAllReceivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	msg := CreateMessage(MessageTypeChatRequest, "operator", "drone", ChatRequest{Text: "hello"})
	a := &recorder{first: &msg}
	b := &recorder{}
	bus := NewMessageBus(make(chan Message, 10), a, b)
	go bus.Run(ctx, &wg)

	deadline := time.Now().Add(2 * time.Second)
	for a.count() == 0 || b.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("message not delivered: a=%d b=%d", a.count(), b.count())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	wg.Wait()

	if got := b.received[0].Message.(ChatRequest).Text; got != "hello" {
		t.Fatalf("text = %q, want %q", got, "hello")
	}
}

func TestToJsonMessageRoundTrip(t *testing.T) {
	msg := CreateMessage(MessageTypeConnectVehicle, "operator", "drone", ConnectVehicle{Address: "sim://"})

	sm, err := msg.ToJsonMessage()
	if err != nil {
		t.Fatal(err)
	}
	if sm.ID != msg.ID || sm.MessageType != MessageTypeConnectVehicle {
		t.Fatalf("envelope not preserved: %+v", sm)
	}

	var cv ConnectVehicle
	if err := json.Unmarshal([]byte(sm.Message), &cv); err != nil {
		t.Fatal(err)
	}
	if cv.Address != "sim://" {
		t.Fatalf("payload not preserved: %+v", cv)
	}
}

func TestReplySwapsAddresses(t *testing.T) {
	msg := CreateMessage(MessageTypeChatRequest, "operator", "drone", ChatRequest{Text: "x"})
	reply := msg.Reply(MessageTypeChatResponse, ChatResponse{Text: "y"})
	if reply.From != "drone" || reply.To != "operator" {
		t.Fatalf("reply from/to = %s/%s", reply.From, reply.To)
	}
	if reply.ID == msg.ID {
		t.Fatalf("reply reused request id %s", msg.ID)
	}
}
