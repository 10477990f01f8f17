package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rincatpp/deepdrone/internal/types"
	"github.com/rincatpp/deepdrone/internal/vehicle"
	log "github.com/sirupsen/logrus"
)

type Source interface {
	Connected() bool
	Telemetry(ctx context.Context) (vehicle.Telemetry, error)
}

type telemetry struct {
	deviceID string
	source   Source
	interval time.Duration
}

func New(deviceID string, source Source, interval time.Duration) types.MessageHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &telemetry{deviceID, source, interval}
}

func (t *telemetry) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	var last types.TelemetryUpdate
	sent := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.interval):
			out, ok := t.poll(ctx)
			if !ok {
				sent = false
				continue
			}
			if sent && out == last {
				// there's no new data to send
				continue
			}
			last, sent = out, true
			post(types.CreateMessage(types.MessageTypeTelemetryUpdate, t.deviceID, "*", out))
		}
	}
}

func (t *telemetry) Receive(message types.Message) {
}

func (t *telemetry) poll(ctx context.Context) (types.TelemetryUpdate, bool) {
	if !t.source.Connected() {
		return types.TelemetryUpdate{}, false
	}
	tel, err := t.source.Telemetry(ctx)
	if err != nil {
		log.WithField("component", "telemetry").Debugf("poll failed: %v", err)
		return types.TelemetryUpdate{}, false
	}
	return types.TelemetryUpdate{
		Lat:              tel.Location.Lat,
		Lon:              tel.Location.Lon,
		Alt:              tel.Location.Alt,
		BatteryVoltageV:  tel.Battery.VoltageV,
		BatteryRemaining: tel.Battery.Remaining,
		GroundSpeed:      tel.GroundSpeed,
		Armed:            tel.Armed,
		Mode:             tel.Mode,
	}, true
}
