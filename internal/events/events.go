package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/types"
	log "github.com/sirupsen/logrus"
)

const (
	qos    = 1
	retain = false
)

type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type events struct {
	client   Publisher
	deviceID string
	inbox    chan types.Message
}

// New publishes this device's outgoing bus messages to
// /devices/<id>/events/<message_type>.
func New(client Publisher, deviceID string) types.MessageHandler {
	return &events{client, deviceID, make(chan types.Message, 32)}
}

func (e *events) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Println("Events shutting down")
			return
		case msg := <-e.inbox:
			if err := e.publish(msg); err != nil {
				log.Printf("Events: could not publish %s: %v", msg.MessageType, err)
			}
		}
	}
}

func (e *events) Receive(message types.Message) {
	if message.From != e.deviceID {
		return
	}
	switch message.Message.(type) {
	case types.TelemetryUpdate:
		select {
		case e.inbox <- message:
		default:
		}
	case types.ChatResponse, types.PlanGenerated, types.PlanRejected, types.MissionProgress, types.VehicleStatus:
		e.inbox <- message
	}
}

func (e *events) publish(msg types.Message) error {
	m, err := msg.ToJsonMessage()
	if err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("/devices/%s/events/%s", e.deviceID, msg.MessageType)
	tok := e.client.Publish(topic, qos, retain, b)
	if !tok.WaitTimeout(10 * time.Second) {
		return errors.Errorf("publish to %s timed out", topic)
	}
	return tok.Error()
}
