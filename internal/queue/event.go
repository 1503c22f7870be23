// Package queue carries one-time code delivery over RabbitMQ: the API
// publishes an event per code and a background consumer hands it to the
// mail transport.
package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// DefaultQueueName is used when no queue name is configured.
const DefaultQueueName = "otp.requested"

// OTPRequestedEvent is published whenever a password-reset code is issued.
// It holds everything the mail worker needs; no database lookup is required
// on the consumer side.
type OTPRequestedEvent struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	RequestedAt string `json:"requested_at"` // RFC3339, UTC
}

func decodeEvent(body []byte) (OTPRequestedEvent, error) {
	var ev OTPRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, err
	}
	if strings.TrimSpace(ev.Email) == "" || strings.TrimSpace(ev.Code) == "" {
		return ev, errors.New("event missing email or code")
	}
	return ev, nil
}
