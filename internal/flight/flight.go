package flight

import (
	"context"
	"fmt"
	"sync"

	"github.com/rincatpp/deepdrone/internal/types"
	"github.com/rincatpp/deepdrone/internal/vehicle"
	log "github.com/sirupsen/logrus"
)

type flight struct {
	deviceID       string
	defaultAddress string
	session        *vehicle.Session
	inbox          chan types.Message
	state          *state
}

// New returns the handler that owns the vehicle session on the bus.
// defaultAddress is used when a connect request carries no address.
func New(deviceID string, session *vehicle.Session, defaultAddress string) types.MessageHandler {
	return &flight{deviceID, defaultAddress, session, make(chan types.Message, 10), newState()}
}

func (f *flight) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Println("Flight shutting down")
			if err := f.session.Disconnect(); err != nil {
				log.Printf("Flight: disconnect failed: %v", err)
			}
			return
		case msg := <-f.inbox:
			for _, x := range f.handleMessage(ctx, msg) {
				post(x)
			}
		}
	}
}

func (f *flight) Receive(message types.Message) {
	switch message.Message.(type) {
	case types.TelemetryUpdate:
		// drop updates rather than block the bus
		select {
		case f.inbox <- message:
		default:
		}
	case types.ConnectVehicle, types.DisconnectVehicle, types.ExecuteMission, types.Goto, types.Land, types.ReturnToLaunch:
		f.inbox <- message
	}
}

func (f *flight) handleMessage(ctx context.Context, msg types.Message) []types.Message {
	switch m := msg.Message.(type) {
	case types.TelemetryUpdate:
		f.state.handleTelemetry(m)
		return []types.Message{}
	case types.ConnectVehicle:
		return []types.Message{f.connect(ctx, m)}
	case types.DisconnectVehicle:
		if err := f.session.Disconnect(); err != nil {
			log.Printf("Flight: disconnect failed: %v", err)
		}
		f.state.reset()
		return []types.Message{f.status("")}
	case types.ExecuteMission:
		return f.execute(ctx, msg, m)
	case types.Goto:
		done := fmt.Sprintf("Flying to %.6f, %.6f at %gm.", m.Lat, m.Lon, m.Alt)
		return []types.Message{f.command(ctx, msg, done, func(ctx context.Context) error {
			return f.session.Goto(ctx, m.Lat, m.Lon, m.Alt)
		})}
	case types.Land:
		return []types.Message{f.command(ctx, msg, "Landing.", f.land(f.session.Land))}
	case types.ReturnToLaunch:
		return []types.Message{f.command(ctx, msg, "Returning to launch.", f.land(f.session.ReturnToLaunch))}
	}

	return []types.Message{}
}

func (f *flight) connect(ctx context.Context, m types.ConnectVehicle) types.Message {
	address := m.Address
	if address == "" {
		address = f.defaultAddress
	}

	log.Printf("Flight: connecting to %s", address)
	if err := f.session.Connect(ctx, address); err != nil {
		log.Printf("Flight: %v", err)
		f.state.reset()
		return f.status(err.Error())
	}
	f.state.reset()
	f.refreshState(ctx)

	return f.status("")
}

func (f *flight) status(errText string) types.Message {
	out := types.VehicleStatus{Connected: f.session.Connected(), Address: f.session.Address(), Error: errText}
	if home, ok := f.session.Home(); ok {
		out.Home = &home
	}
	return types.CreateMessage(types.MessageTypeVehicleStatus, f.deviceID, "*", out)
}

func (f *flight) execute(ctx context.Context, msg types.Message, m types.ExecuteMission) []types.Message {
	progress := func(status string, err error) types.Message {
		out := types.MissionProgress{MissionType: m.Plan.MissionType, Status: status}
		if err != nil {
			out.Error = err.Error()
		}
		return types.CreateMessage(types.MessageTypeMissionProgress, f.deviceID, "*", out)
	}

	if !f.session.Connected() {
		return []types.Message{progress(types.MissionStatusRejected, vehicle.ErrNotConnected)}
	}
	t, err := f.state.begin(msg.ID, m.Plan.MissionType)
	if err != nil {
		log.Printf("Flight: mission rejected: %v", err)
		return []types.Message{progress(types.MissionStatusRejected, err)}
	}

	log.WithFields(log.Fields{"mission": m.Plan.MissionType, "waypoints": len(m.Plan.Waypoints)}).Println("Flight: mission started")
	f.state.started(t)
	result := []types.Message{progress(types.MissionStatusStarted, nil)}

	err = f.session.FlyPlan(ctx, m.Plan)
	f.state.finished(t, err)
	if err != nil {
		log.Printf("Flight: mission failed: %v", err)
		return append(result, progress(types.MissionStatusFailed, err))
	}

	log.Println("Flight: mission completed")
	return append(result, progress(types.MissionStatusCompleted, nil))
}

func (f *flight) command(ctx context.Context, msg types.Message, done string, fn func(context.Context) error) types.Message {
	if err := fn(ctx); err != nil {
		log.Printf("Flight: %s failed: %v", msg.MessageType, err)
		return msg.Reply(types.MessageTypeChatResponse, types.ChatResponse{Text: "Could not " + msg.MessageType + ": " + err.Error()})
	}
	f.refreshState(ctx)
	return msg.Reply(types.MessageTypeChatResponse, types.ChatResponse{Text: done})
}

// land marks the vehicle as coming down once fn succeeds.
func (f *flight) land(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		f.state.landing()
		return nil
	}
}

func (f *flight) refreshState(ctx context.Context) {
	tel, err := f.session.Telemetry(ctx)
	if err != nil {
		return
	}
	f.state.handleTelemetry(types.TelemetryUpdate{Armed: tel.Armed})
}
