package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rincatpp/deepdrone/internal/assistant"
	"github.com/rincatpp/deepdrone/internal/commands"
	"github.com/rincatpp/deepdrone/internal/config"
	"github.com/rincatpp/deepdrone/internal/events"
	"github.com/rincatpp/deepdrone/internal/flight"
	"github.com/rincatpp/deepdrone/internal/missionplanner"
	"github.com/rincatpp/deepdrone/internal/mqttconn"
	"github.com/rincatpp/deepdrone/internal/telemetry"
	"github.com/rincatpp/deepdrone/internal/types"
	"github.com/rincatpp/deepdrone/internal/vehicle"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	deafultFlagSet    = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	configPath        = deafultFlagSet.String("config", "", "YAML configuration file")
	deviceID          = deafultFlagSet.String("device_id", "", "The provisioned device id")
	mqttBrokerAddress = deafultFlagSet.String("mqtt_broker", "", "MQTT broker protocol, address and port")
	privateKeyPath    = deafultFlagSet.String("private_key", "", "The private key for the MQTT authentication")
	vehicleLink       = deafultFlagSet.String("link", "", "Vehicle link: sim or mqtt")
	vehicleAddress    = deafultFlagSet.String("address", "", "Vehicle address (connection string or device id)")
	modelProvider     = deafultFlagSet.String("model", "", "Model provider: hf or placeholder")
	logLevel          = deafultFlagSet.String("log_level", "", "Log level")
	connect           = deafultFlagSet.Bool("connect", false, "Connect to the vehicle on startup")
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "plan":
			os.Exit(runPlan(args[1:], os.Stdout))
		case "run":
			args = args[1:]
		}
	}

	if err := deafultFlagSet.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, applyFlags)
	if err != nil {
		log.Fatal(err)
	}
	setupLogging(cfg.Log)

	// attach sigint & sigterm listeners
	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)

	// quitFunc will be called when process is terminated
	ctx, quitFunc := context.WithCancel(context.Background())

	// wait group will make sure all goroutines have time to clean up
	var wg sync.WaitGroup

	var mqttClient mqtt.Client
	if cfg.MQTTBroker != "" {
		mqttClient, err = mqttconn.Connect(mqttconn.Options{
			Broker:         cfg.MQTTBroker,
			ClientID:       cfg.DeviceID,
			PrivateKeyPath: cfg.PrivateKey,
		})
		if err != nil {
			log.Fatal(err)
		}
		defer mqttClient.Disconnect(1000)
	}

	session := vehicle.NewSession(newLink(cfg, mqttClient))

	handlers := []types.MessageHandler{
		types.NewLogger(),
		missionplanner.New(cfg.DeviceID),
		assistant.NewHandler(cfg.DeviceID, newModel(cfg.Model)),
		flight.New(cfg.DeviceID, session, cfg.Vehicle.Address),
		telemetry.New(cfg.DeviceID, session, cfg.TelemetryInterval),
	}
	if mqttClient != nil {
		handlers = append(handlers, commands.New(mqttClient, cfg.DeviceID), events.New(mqttClient, cfg.DeviceID))
	}
	if cfg.Console {
		handlers = append(handlers, commands.NewConsole(cfg.DeviceID, os.Stdin, os.Stdout))
	}

	messagebus := make(chan types.Message, 100)
	bus := types.NewMessageBus(messagebus, handlers...)

	go bus.Run(ctx, &wg)

	if cfg.Vehicle.AutoConnect {
		bus.Post(types.CreateMessage(types.MessageTypeConnectVehicle, "startup", cfg.DeviceID, types.ConnectVehicle{Address: cfg.Vehicle.Address}))
	}

	// wait for termination and close quit to signal all
	<-terminationSignals
	// cancel the main context
	log.Printf("Shutting down..")
	quitFunc()

	// wait until goroutines have done their cleanup
	log.Printf("Waiting for routines to finish...")
	wg.Wait()
	log.Printf("Signing off - BYE")
}

// applyFlags overrides configuration with flags given on the command line.
func applyFlags(cfg *config.Config) {
	deafultFlagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device_id":
			cfg.DeviceID = *deviceID
		case "mqtt_broker":
			cfg.MQTTBroker = *mqttBrokerAddress
		case "private_key":
			cfg.PrivateKey = *privateKeyPath
		case "link":
			cfg.Vehicle.Link = *vehicleLink
		case "address":
			cfg.Vehicle.Address = *vehicleAddress
		case "model":
			cfg.Model.Provider = *modelProvider
		case "log_level":
			cfg.Log.Level = *logLevel
		case "connect":
			cfg.Vehicle.AutoConnect = *connect
		}
	})
}

func setupLogging(cfg config.Log) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.File == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    32, // MB
		MaxBackups: 3,
		MaxAge:     14,
	}))
}

func newLink(cfg config.Config, client mqtt.Client) vehicle.Link {
	switch cfg.Vehicle.Link {
	case config.LinkMQTT:
		return vehicle.NewMQTTLink(client, vehicle.MQTTLinkOptions{
			ConnectTimeout: cfg.Vehicle.ConnectTimeout,
			TakeoffTimeout: cfg.Vehicle.TakeoffTimeout,
		})
	default:
		return vehicle.NewSimLink(cfg.Vehicle.Home)
	}
}

func newModel(cfg config.Model) assistant.Model {
	if cfg.Provider == config.ProviderPlaceholder {
		return assistant.PlaceholderModel{}
	}

	m, err := assistant.NewHFModel(assistant.HFConfig{
		Token:       cfg.Token,
		ModelID:     cfg.ModelID,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		log.Warnf("%v, using the offline placeholder model", err)
		fmt.Fprintln(os.Stderr, "Set HF_TOKEN in the environment or a .env file to use the Hugging Face model.")
		return assistant.PlaceholderModel{}
	}
	return m
}
