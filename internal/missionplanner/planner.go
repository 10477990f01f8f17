package missionplanner

import (
	"context"
	"sync"

	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/types"
	log "github.com/sirupsen/logrus"
)

type missionPlanner struct {
	me    string
	inbox chan types.Message
}

func New(deviceID string) types.MessageHandler {
	return &missionPlanner{deviceID, make(chan types.Message, 10)}
}

func (mp *missionPlanner) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Println("MissionPlanner shutting down")
			return
		case msg := <-mp.inbox:
			out := mp.handleMessage(msg)
			for _, x := range out {
				post(x)
			}
		}
	}
}

func (mp *missionPlanner) Receive(message types.Message) {
	if _, ok := message.Message.(types.PlanRequest); !ok {
		return
	}
	mp.inbox <- message
}

func (mp *missionPlanner) handleMessage(msg types.Message) []types.Message {
	switch m := msg.Message.(type) {
	case types.PlanRequest:
		plan, err := Plan(Request{
			MissionType:     mission.ParseMissionType(m.MissionType),
			DurationMinutes: m.DurationMinutes,
			Reference:       m.Reference,
			Destination:     m.Destination,
		})
		if err != nil {
			log.Printf("MissionPlanner: plan rejected: %v", err)
			return []types.Message{msg.Reply(types.MessageTypePlanRejected, types.PlanRejected{Reason: err.Error()})}
		}
		return []types.Message{msg.Reply(types.MessageTypePlanGenerated, types.PlanGenerated{Plan: plan})}
	}

	return []types.Message{}
}
