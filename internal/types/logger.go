package types

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

type logger struct {
	entry *log.Entry
}

func NewLogger() MessageHandler {
	return &logger{log.WithField("component", "bus")}
}

func (l *logger) Receive(message Message) {
	if message.MessageType == MessageTypeTelemetryUpdate {
		return
	}

	b, _ := json.Marshal(message.Message)
	l.entry.WithFields(log.Fields{
		"type": message.MessageType,
		"from": message.From,
		"to":   message.To,
		"id":   message.ID,
	}).Debugf("Message: %s", string(b))
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
