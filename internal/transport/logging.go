// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	applog "spectrum/internal/log"
)

// LoggingTransport writes every message to the debug log.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs msg as JSON. It never fails.
func (lt *LoggingTransport) Send(msg Message) error {
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		applog.Debugf("LOG_TRANSPORT: %s (%T): %+v (marshal error: %v)", msg.Event, msg.Data, msg.Data, err)
		return nil
	}
	applog.Debugf("LOG_TRANSPORT: %s", data)
	return nil
}

func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: close called")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
