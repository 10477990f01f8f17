package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/missionexport"
	"github.com/rincatpp/deepdrone/internal/missionplanner"
	"github.com/rincatpp/deepdrone/internal/types"
	log "github.com/sirupsen/logrus"
)

const operator = "operator"

type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

type controlCommand struct {
	Command string `json:"command"`
	Payload string `json:"payload"`
}

type commandHandler struct {
	client   Subscriber
	deviceID string
}

// New subscribes to /devices/<id>/commands/# and turns operator
// commands into bus messages.
func New(client Subscriber, deviceID string) types.MessageHandler {
	return &commandHandler{client, deviceID}
}

func (c *commandHandler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	log.Printf("Subscribing to MQTT commands")
	commandTopic := fmt.Sprintf("/devices/%s/commands/", c.deviceID)
	token := c.client.Subscribe(fmt.Sprintf("%v#", commandTopic), 0, func(client mqtt.Client, msg mqtt.Message) {
		subfolder := strings.TrimPrefix(msg.Topic(), commandTopic)
		out, err := parseCommand(c.deviceID, subfolder, msg.Payload())
		if err != nil {
			log.Printf("Could not handle command on %s: %v", msg.Topic(), err)
			return
		}
		post(out)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("Error on subscribe: %v", err)
	}
}

func (c *commandHandler) Receive(message types.Message) {
}

func parseCommand(deviceID, subfolder string, payload []byte) (types.Message, error) {
	switch subfolder {
	case "chat":
		text := strings.TrimSpace(string(payload))
		if text == "" {
			return types.Message{}, errors.New("empty chat message")
		}
		return types.CreateMessage(types.MessageTypeChatRequest, operator, deviceID, types.ChatRequest{Text: text}), nil
	case "control":
		var cmd controlCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return types.Message{}, errors.Wrap(err, "could not unmarshal command")
		}
		return controlMessage(deviceID, cmd)
	default:
		return types.Message{}, errors.Errorf("unknown command subfolder: %v", subfolder)
	}
}

func controlMessage(deviceID string, cmd controlCommand) (types.Message, error) {
	create := func(messageType string, v interface{}) (types.Message, error) {
		return types.CreateMessage(messageType, operator, deviceID, v), nil
	}

	switch cmd.Command {
	case "connect":
		return create(types.MessageTypeConnectVehicle, types.ConnectVehicle{Address: cmd.Payload})
	case "disconnect":
		return create(types.MessageTypeDisconnectVehicle, types.DisconnectVehicle{})
	case "land":
		return create(types.MessageTypeLand, types.Land{})
	case "rtl", "return-to-launch":
		return create(types.MessageTypeReturnToLaunch, types.ReturnToLaunch{})
	case "goto":
		var target types.Goto
		if err := json.Unmarshal([]byte(cmd.Payload), &target); err != nil {
			return types.Message{}, errors.Wrap(err, "could not unmarshal goto target")
		}
		if err := validateGoto(target); err != nil {
			return types.Message{}, err
		}
		return create(types.MessageTypeGoto, target)
	case "plan":
		req, err := parsePlanRequest(cmd.Payload)
		if err != nil {
			return types.Message{}, err
		}
		return create(types.MessageTypePlanRequest, req)
	case "route":
		points, err := missionexport.ReadRoute([]byte(cmd.Payload))
		if err != nil {
			return types.Message{}, err
		}
		plan, err := missionplanner.FromRoute(points, missionplanner.DefaultDurationMinutes)
		if err != nil {
			return types.Message{}, err
		}
		return create(types.MessageTypeExecuteMission, types.ExecuteMission{Plan: plan})
	case "execute":
		plan, err := mission.ParsePlan([]byte(cmd.Payload))
		if err != nil {
			return types.Message{}, err
		}
		return create(types.MessageTypeExecuteMission, types.ExecuteMission{Plan: plan})
	default:
		return types.Message{}, errors.Errorf("unknown command: %v", cmd.Command)
	}
}

// parsePlanRequest fills in the default duration when the field is
// missing. An explicit zero is passed on for the planner to reject.
func parsePlanRequest(payload string) (types.PlanRequest, error) {
	var req struct {
		types.PlanRequest
		DurationMinutes *float64 `json:"duration_minutes"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return types.PlanRequest{}, errors.Wrap(err, "could not unmarshal plan request")
	}

	out := req.PlanRequest
	out.DurationMinutes = missionplanner.DefaultDurationMinutes
	if req.DurationMinutes != nil {
		out.DurationMinutes = *req.DurationMinutes
	}
	return out, nil
}

func validateGoto(g types.Goto) error {
	if g.Lat < -90 || g.Lat > 90 || g.Lon < -180 || g.Lon > 180 || g.Alt <= 0 {
		return errors.Errorf("goto target %.6f, %.6f at %gm out of range", g.Lat, g.Lon, g.Alt)
	}
	return nil
}
