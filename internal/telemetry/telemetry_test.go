package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rincatpp/deepdrone/internal/types"
	"github.com/rincatpp/deepdrone/internal/vehicle"
)

func TestPostsOnlyWhenConnected(t *testing.T) {
	session := vehicle.NewSession(vehicle.NewSimLink(vehicle.DefaultSimHome))
	h := New("drone1", session, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	got := make(chan types.Message, 10)
	go h.Run(ctx, &wg, func(m types.Message) {
		select {
		case got <- m:
		default:
		}
	})

	select {
	case m := <-got:
		t.Fatalf("unexpected telemetry before connect: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}

	if err := session.Connect(context.Background(), "sim"); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-got:
		update, ok := m.Message.(types.TelemetryUpdate)
		if !ok || m.MessageType != types.MessageTypeTelemetryUpdate {
			t.Fatalf("message = %+v", m)
		}
		if update.Lat != vehicle.DefaultSimHome.Lat || update.BatteryRemaining != 1 {
			t.Fatalf("update = %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatal("no telemetry after connect")
	}

	// unchanged telemetry is not repeated
	select {
	case m := <-got:
		t.Fatalf("duplicate telemetry: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	wg.Wait()
}
