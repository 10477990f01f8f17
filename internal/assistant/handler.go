package assistant

import (
	"context"
	"sync"

	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/types"
	log "github.com/sirupsen/logrus"
)

// vehicleHome follows vehicle-status messages on the bus.
type vehicleHome struct {
	mu   sync.Mutex
	home *mission.Location
}

func (h *vehicleHome) Home() (mission.Location, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.home == nil {
		return mission.Location{}, false
	}
	return *h.home, true
}

func (h *vehicleHome) update(status types.VehicleStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !status.Connected || status.Home == nil {
		h.home = nil
		return
	}
	home := *status.Home
	h.home = &home
}

type handler struct {
	deviceID  string
	inbox     chan types.Message
	home      *vehicleHome
	assistant *Assistant
}

func NewHandler(deviceID string, model Model) types.MessageHandler {
	home := &vehicleHome{}
	return &handler{deviceID, make(chan types.Message, 10), home, New(model, home)}
}

func (h *handler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Println("Assistant shutting down")
			return
		case msg := <-h.inbox:
			for _, x := range h.handleMessage(ctx, msg) {
				post(x)
			}
		}
	}
}

func (h *handler) Receive(message types.Message) {
	switch m := message.Message.(type) {
	case types.VehicleStatus:
		h.home.update(m)
	case types.ChatRequest:
		h.inbox <- message
	}
}

func (h *handler) handleMessage(ctx context.Context, msg types.Message) []types.Message {
	req, ok := msg.Message.(types.ChatRequest)
	if !ok {
		return []types.Message{}
	}

	reply, err := h.assistant.Chat(ctx, req.Text)
	if err != nil {
		log.Printf("Assistant: %v", err)
		return []types.Message{msg.Reply(types.MessageTypeChatResponse, types.ChatResponse{Text: "Sorry, I could not handle that: " + err.Error()})}
	}

	result := []types.Message{
		msg.Reply(types.MessageTypeChatResponse, types.ChatResponse{Text: reply.Text, Plan: reply.Plan, Execute: reply.Execute}),
	}
	if reply.Plan != nil {
		result = append(result, types.CreateMessage(types.MessageTypePlanGenerated, h.deviceID, "*", types.PlanGenerated{Plan: *reply.Plan}))
	}
	if reply.Execute {
		result = append(result, types.CreateMessage(types.MessageTypeExecuteMission, h.deviceID, h.deviceID, types.ExecuteMission{Plan: *reply.Plan}))
	}

	return result
}
