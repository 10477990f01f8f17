package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/types"
)

type fixedHome struct {
	loc       mission.Location
	connected bool
}

func (h fixedHome) Home() (mission.Location, bool) { return h.loc, h.connected }

type failingModel struct{}

func (failingModel) Generate(ctx context.Context, messages []ChatMessage) (Result, error) {
	return Result{}, errors.New("model offline")
}

type recordingModel struct {
	content  string
	messages []ChatMessage
}

func (m *recordingModel) Generate(ctx context.Context, messages []ChatMessage) (Result, error) {
	m.messages = messages
	return Result{Content: m.content}, nil
}

func TestChatWithoutVehicle(t *testing.T) {
	a := New(PlaceholderModel{}, fixedHome{})
	reply, err := a.Chat(context.Background(), "Create a survey mission that takes 20 minutes and execute it")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Plan == nil {
		t.Fatal("expected a plan")
	}
	if reply.Plan.MissionType != mission.MissionTypeSurvey || reply.Plan.DurationMinutes != 20 {
		t.Fatalf("plan = %s", reply.Plan)
	}
	if reply.Plan.Reference != nil {
		t.Fatal("plan should have no reference without a vehicle")
	}
	if reply.Execute {
		t.Fatal("must not execute without a vehicle")
	}
	if reply.Source != "model" {
		t.Fatalf("source = %q, want model", reply.Source)
	}
	if !strings.Contains(reply.Text, "No vehicle is connected") {
		t.Fatalf("text = %q", reply.Text)
	}
}

func TestChatWithVehicle(t *testing.T) {
	home := mission.Location{Lat: -35.363261, Lon: 149.165230}
	a := New(PlaceholderModel{}, fixedHome{home, true})
	reply, err := a.Chat(context.Background(), "plan a 10 minute inspection and fly it")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Plan == nil || reply.Plan.Reference == nil || *reply.Plan.Reference != home {
		t.Fatalf("plan reference = %+v", reply.Plan)
	}
	if !reply.Execute {
		t.Fatal("expected execute")
	}
}

func TestChatSmallTalk(t *testing.T) {
	a := New(PlaceholderModel{}, nil)
	reply, err := a.Chat(context.Background(), "hello there")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Plan != nil {
		t.Fatalf("unexpected plan %s", reply.Plan)
	}
	if reply.Text == "" {
		t.Fatal("expected help text")
	}
}

func TestChatFallsBackToKeywords(t *testing.T) {
	a := New(failingModel{}, nil)
	reply, err := a.Chat(context.Background(), "deliver to 37.7749, -122.4194 in 10 minutes")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Source != "keywords" {
		t.Fatalf("source = %q", reply.Source)
	}
	if reply.Plan == nil || reply.Plan.MissionType != mission.MissionTypeDelivery {
		t.Fatalf("plan = %+v", reply.Plan)
	}
}

func TestChatIgnoresCode(t *testing.T) {
	m := &recordingModel{content: "```python\nimport os\nos.system('rm -rf /')\n```"}
	a := New(m, nil)
	reply, err := a.Chat(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Plan != nil || reply.Source != "keywords" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestChatHistory(t *testing.T) {
	m := &recordingModel{content: "{\"mission_type\": \"custom\"}"}
	a := New(m, nil)
	for i := 0; i < maxHistory+3; i++ {
		if _, err := a.Chat(context.Background(), "square"); err != nil {
			t.Fatal(err)
		}
	}
	if m.messages[0].Role != RoleSystem {
		t.Fatalf("first message role = %q", m.messages[0].Role)
	}
	// system prompt, bounded history, current message
	if len(m.messages) != 2*maxHistory+2 {
		t.Fatalf("sent %d messages", len(m.messages))
	}
}

func TestChatEmpty(t *testing.T) {
	if _, err := New(PlaceholderModel{}, nil).Chat(context.Background(), "   "); err == nil {
		t.Fatal("expected error")
	}
}

func TestHFModel(t *testing.T) {
	var got struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer hf_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"m",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"{\"mission_type\":\"survey\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	m, err := NewHFModel(HFConfig{Token: "hf_test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "survey"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != `{"mission_type":"survey"}` {
		t.Fatalf("content = %q", res.Content)
	}
	if got.Model != DefaultModelID || len(got.Messages) != 1 || got.Messages[0].Content != "survey" {
		t.Fatalf("request = %+v", got)
	}
}

func TestHFModelRequiresToken(t *testing.T) {
	if _, err := NewHFModel(HFConfig{}); err != ErrMissingToken {
		t.Fatalf("err = %v", err)
	}
}

func TestHandler(t *testing.T) {
	h := NewHandler("drone1", PlaceholderModel{}).(*handler)
	h.Receive(types.CreateMessage(types.MessageTypeVehicleStatus, "flight", "*",
		types.VehicleStatus{Connected: true, Home: &mission.Location{Lat: 1, Lon: 2}}))

	req := types.CreateMessage(types.MessageTypeChatRequest, "console", "drone1", types.ChatRequest{Text: "survey for 5 minutes and execute"})
	out := h.handleMessage(context.Background(), req)
	if len(out) != 3 {
		t.Fatalf("got %d messages", len(out))
	}
	if out[0].MessageType != types.MessageTypeChatResponse || out[0].To != "console" {
		t.Fatalf("first = %+v", out[0])
	}
	if out[1].MessageType != types.MessageTypePlanGenerated {
		t.Fatalf("second = %s", out[1].MessageType)
	}
	exec, ok := out[2].Message.(types.ExecuteMission)
	if !ok || exec.Plan.Reference == nil || exec.Plan.Reference.Lat != 1 {
		t.Fatalf("third = %+v", out[2])
	}
}

func TestHandlerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	got := make(chan types.Message, 4)

	h := NewHandler("drone1", PlaceholderModel{})
	go h.Run(ctx, &wg, func(m types.Message) { got <- m })
	h.Receive(types.CreateMessage(types.MessageTypeChatRequest, "console", "drone1", types.ChatRequest{Text: "plan a square"}))

	first := <-got
	resp, ok := first.Message.(types.ChatResponse)
	if !ok || resp.Plan == nil || resp.Execute {
		t.Fatalf("response = %+v", first)
	}
	cancel()
	wg.Wait()
}
