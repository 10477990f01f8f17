package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/types"
	log "github.com/sirupsen/logrus"
)

const console = "console"

const consoleHelp = `Type a mission request, for example "plan a 20 minute survey and execute it".
Commands: /connect [address], /disconnect, /goto lat lon alt, /land, /rtl, /status, /help`

type consoleHandler struct {
	deviceID string
	in       io.Reader
	out      io.Writer
	inbox    chan types.Message

	mu        sync.Mutex
	telemetry *types.TelemetryUpdate
}

// NewConsole reads operator lines from in and prints replies to out.
func NewConsole(deviceID string, in io.Reader, out io.Writer) types.MessageHandler {
	return &consoleHandler{deviceID: deviceID, in: in, out: out, inbox: make(chan types.Message, 10)}
}

func (c *consoleHandler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("Console: read failed: %v", err)
		}
	}()

	fmt.Fprintln(c.out, consoleHelp)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if msg, ok := c.handleLine(line); ok {
				post(msg)
			}
		case msg := <-c.inbox:
			c.print(msg)
		}
	}
}

func (c *consoleHandler) Receive(message types.Message) {
	switch m := message.Message.(type) {
	case types.TelemetryUpdate:
		c.mu.Lock()
		c.telemetry = &m
		c.mu.Unlock()
	case types.ChatResponse:
		if message.To == console {
			c.inbox <- message
		}
	case types.MissionProgress, types.VehicleStatus:
		c.inbox <- message
	}
}

// handleLine returns the bus message for one line of input, if any.
func (c *consoleHandler) handleLine(line string) (types.Message, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return types.Message{}, false
	}
	if !strings.HasPrefix(line, "/") {
		return types.CreateMessage(types.MessageTypeChatRequest, console, c.deviceID, types.ChatRequest{Text: line}), true
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/connect":
		address := ""
		if len(fields) > 1 {
			address = fields[1]
		}
		return types.CreateMessage(types.MessageTypeConnectVehicle, console, c.deviceID, types.ConnectVehicle{Address: address}), true
	case "/disconnect":
		return types.CreateMessage(types.MessageTypeDisconnectVehicle, console, c.deviceID, types.DisconnectVehicle{}), true
	case "/goto":
		target, err := parseGoto(fields[1:])
		if err != nil {
			fmt.Fprintf(c.out, "Usage: /goto lat lon alt (%v)\n", err)
			return types.Message{}, false
		}
		return types.CreateMessage(types.MessageTypeGoto, console, c.deviceID, target), true
	case "/land":
		return types.CreateMessage(types.MessageTypeLand, console, c.deviceID, types.Land{}), true
	case "/rtl":
		return types.CreateMessage(types.MessageTypeReturnToLaunch, console, c.deviceID, types.ReturnToLaunch{}), true
	case "/status":
		c.printStatus()
	case "/help":
		fmt.Fprintln(c.out, consoleHelp)
	default:
		fmt.Fprintf(c.out, "Unknown command %s\n", fields[0])
	}
	return types.Message{}, false
}

func parseGoto(args []string) (types.Goto, error) {
	if len(args) != 3 {
		return types.Goto{}, errors.Errorf("got %d arguments", len(args))
	}
	var v [3]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return types.Goto{}, errors.Errorf("bad number %q", a)
		}
		v[i] = f
	}
	target := types.Goto{Lat: v[0], Lon: v[1], Alt: v[2]}
	return target, validateGoto(target)
}

func (c *consoleHandler) printStatus() {
	c.mu.Lock()
	t := c.telemetry
	c.mu.Unlock()

	if t == nil {
		fmt.Fprintln(c.out, "No telemetry yet.")
		return
	}
	fmt.Fprintf(c.out, "Position %.6f, %.6f at %.1fm, battery %.0f%% (%.1fV), %.1fm/s, mode %s, armed %v\n",
		t.Lat, t.Lon, t.Alt, t.BatteryRemaining*100, t.BatteryVoltageV, t.GroundSpeed, t.Mode, t.Armed)
}

func (c *consoleHandler) print(msg types.Message) {
	switch m := msg.Message.(type) {
	case types.ChatResponse:
		fmt.Fprintf(c.out, "DeepDrone: %s\n", m.Text)
		if m.Plan != nil {
			fmt.Fprintln(c.out, m.Plan.String())
		}
	case types.MissionProgress:
		if m.Error != "" {
			fmt.Fprintf(c.out, "Mission %s %s: %s\n", m.MissionType, m.Status, m.Error)
			return
		}
		fmt.Fprintf(c.out, "Mission %s %s\n", m.MissionType, m.Status)
	case types.VehicleStatus:
		switch {
		case m.Error != "":
			fmt.Fprintf(c.out, "Vehicle connection failed: %s\n", m.Error)
		case m.Connected && m.Home != nil:
			fmt.Fprintf(c.out, "Vehicle connected at %s, home %.6f, %.6f\n", m.Address, m.Home.Lat, m.Home.Lon)
		case m.Connected:
			fmt.Fprintf(c.out, "Vehicle connected at %s\n", m.Address)
		default:
			fmt.Fprintln(c.out, "Vehicle disconnected")
		}
	}
}
