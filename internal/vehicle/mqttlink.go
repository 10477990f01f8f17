package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	log "github.com/sirupsen/logrus"
)

const (
	qos    = 1
	retain = false

	armingStateArmed = 2

	publishTimeout = 10 * time.Second
	pollInterval   = 200 * time.Millisecond
)

var navStates = map[uint8]string{
	0:  "MANUAL",
	1:  "ALTCTL",
	2:  "POSCTL",
	3:  "AUTO",
	4:  "LOITER",
	5:  "RTL",
	14: "OFFBOARD",
	17: "TAKEOFF",
	18: "LAND",
}

// MQTTClient is the part of mqtt.Client the link uses.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

type controlCommand struct {
	Command   string    `json:"command"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
}

// telemetry as published by the drone side communication link
type telemetry struct {
	Timestamp int64
	MessageID string

	Lat              float64
	Lon              float64
	Heading          float32
	AltitudeFromHome float32
	DistanceFromHome float32
	GroundSpeed      float32

	BatteryVoltageV  float32
	BatteryRemaining float32

	ArmingState uint8
	NavState    uint8
}

type MQTTLinkOptions struct {
	ConnectTimeout time.Duration
	TakeoffTimeout time.Duration
}

// MQTTLink drives a vehicle through its MQTT communication link. The
// address passed to Connect is the vehicle's device id.
type MQTTLink struct {
	client MQTTClient
	opts   MQTTLinkOptions

	mu            sync.Mutex
	deviceID      string
	current       telemetry
	haveTelemetry bool
	updated       chan struct{}
}

func NewMQTTLink(client MQTTClient, opts MQTTLinkOptions) *MQTTLink {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.TakeoffTimeout <= 0 {
		opts.TakeoffTimeout = 60 * time.Second
	}
	return &MQTTLink{client: client, opts: opts, updated: make(chan struct{}, 1)}
}

func telemetryTopic(deviceID string) string {
	return fmt.Sprintf("/devices/%s/events/telemetry", deviceID)
}

func controlTopic(deviceID string) string {
	return fmt.Sprintf("/devices/%s/commands/control", deviceID)
}

// Connect subscribes to the vehicle's telemetry and waits for the first
// update.
func (l *MQTTLink) Connect(ctx context.Context, address string) error {
	if address == "" {
		return errors.New("vehicle device id missing")
	}

	l.mu.Lock()
	l.deviceID = address
	l.haveTelemetry = false
	l.mu.Unlock()

	tok := l.client.Subscribe(telemetryTopic(address), qos, l.handleTelemetry)
	if err := waitToken(tok); err != nil {
		return errors.Wrap(err, "could not subscribe to telemetry")
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.ConnectTimeout)
	defer cancel()
	err := l.waitFor(ctx, func(t telemetry) bool { return true })
	if err != nil {
		l.client.Unsubscribe(telemetryTopic(address))
		return errors.Wrapf(err, "no telemetry from %s", address)
	}

	log.WithField("device", address).Println("MQTT link: vehicle online")
	return nil
}

func (l *MQTTLink) handleTelemetry(client mqtt.Client, msg mqtt.Message) {
	var t telemetry
	if err := json.Unmarshal(msg.Payload(), &t); err != nil {
		log.Printf("MQTT link: could not unmarshal telemetry: %v", err)
		return
	}

	l.mu.Lock()
	l.current = t
	l.haveTelemetry = true
	l.mu.Unlock()

	select {
	case l.updated <- struct{}{}:
	default:
	}
}

// waitFor blocks until cond holds for the latest telemetry.
func (l *MQTTLink) waitFor(ctx context.Context, cond func(telemetry) bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		l.mu.Lock()
		t, ok := l.current, l.haveTelemetry
		l.mu.Unlock()
		if ok && cond(t) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.updated:
		case <-ticker.C:
		}
	}
}

func (l *MQTTLink) send(command string, payload interface{}) error {
	l.mu.Lock()
	deviceID := l.deviceID
	l.mu.Unlock()
	if deviceID == "" {
		return ErrNotConnected
	}

	cmd := controlCommand{Command: command, Timestamp: time.Now().UTC(), ID: uuid.New().String()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "could not marshal %s payload", command)
		}
		cmd.Payload = string(b)
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"command": command, "id": cmd.ID}).Debugln("MQTT link: sending")
	if err := waitToken(l.client.Publish(controlTopic(deviceID), qos, retain, b)); err != nil {
		return errors.Wrapf(err, "could not send %s", command)
	}
	return nil
}

func (l *MQTTLink) ArmAndTakeoff(ctx context.Context, altitude float64) error {
	if err := l.send("arm", nil); err != nil {
		return err
	}
	if err := l.send("takeoff", struct {
		Altitude float64 `json:"altitude"`
	}{altitude}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.TakeoffTimeout)
	defer cancel()
	err := l.waitFor(ctx, func(t telemetry) bool {
		return float64(t.AltitudeFromHome) >= altitude*0.95
	})
	if err != nil {
		return errors.Wrapf(err, "vehicle did not reach %gm", altitude)
	}
	return nil
}

func (l *MQTTLink) Goto(ctx context.Context, lat, lon, alt float64) error {
	return l.send("goto", Position{Lat: lat, Lon: lon, Alt: alt})
}

func (l *MQTTLink) UploadMission(ctx context.Context, waypoints []mission.AbsoluteWaypoint) error {
	if len(waypoints) == 0 {
		return ErrNoWaypoints
	}
	return l.send("upload-mission", waypoints)
}

func (l *MQTTLink) ExecuteMission(ctx context.Context) error {
	return l.send("start-mission", nil)
}

func (l *MQTTLink) Telemetry(ctx context.Context) (Telemetry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.deviceID == "" {
		return Telemetry{}, ErrNotConnected
	}
	if !l.haveTelemetry {
		return Telemetry{}, errors.New("no telemetry received")
	}

	t := l.current
	mode, ok := navStates[t.NavState]
	if !ok {
		mode = fmt.Sprintf("NAV_%d", t.NavState)
	}
	return Telemetry{
		Location:    Position{Lat: t.Lat, Lon: t.Lon, Alt: float64(t.AltitudeFromHome)},
		Battery:     Battery{VoltageV: float64(t.BatteryVoltageV), Remaining: float64(t.BatteryRemaining)},
		GroundSpeed: float64(t.GroundSpeed),
		Armed:       t.ArmingState == armingStateArmed,
		Mode:        mode,
	}, nil
}

func (l *MQTTLink) Land(ctx context.Context) error {
	return l.send("land", nil)
}

func (l *MQTTLink) ReturnToLaunch(ctx context.Context) error {
	return l.send("return-to-launch", nil)
}

func (l *MQTTLink) Disconnect() error {
	l.mu.Lock()
	deviceID := l.deviceID
	l.deviceID = ""
	l.haveTelemetry = false
	l.mu.Unlock()

	if deviceID == "" {
		return nil
	}
	return waitToken(l.client.Unsubscribe(telemetryTopic(deviceID)))
}

func waitToken(tok mqtt.Token) error {
	if !tok.WaitTimeout(publishTimeout) {
		return errors.New("timed out")
	}
	return tok.Error()
}
