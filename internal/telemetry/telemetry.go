// Package telemetry publishes connection-state transitions and tool-call
// completions onto a Redis pub/sub channel for external observers. It is
// write-only: the adapter never reads state back out of Redis, so this
// package cannot become a hidden persistence layer.
package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second

	// StateChannel carries link.State transitions.
	StateChannel = "arduino-mcp-adapter:state"
	// CallChannel carries tools/call completions.
	CallChannel = "arduino-mcp-adapter:calls"
)

// Publisher wraps a redis.Client for fire-and-forget publishing. A nil
// *Publisher is valid and every method on it is a no-op, so callers can
// leave telemetry disabled without branching on it everywhere.
type Publisher struct {
	client *redis.Client
	log    *log.Logger
}

// New connects to addr and returns a Publisher, or an error if the server
// is unreachable. Pass an empty addr from the caller to skip telemetry
// entirely instead of calling New.
func New(addr, password string, db int, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[telemetry] ", log.LstdFlags|log.Lmicroseconds)
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Publisher{client: client, log: logger}, nil
}

// StateChange publishes a state transition as JSON. Errors are logged, not
// returned: a dropped telemetry message must never affect device control.
func (p *Publisher) StateChange(phase, deviceID, message string) {
	p.publish(StateChannel, map[string]string{
		"phase":     phase,
		"device_id": deviceID,
		"message":   message,
	})
}

// CallCompleted publishes a tools/call completion as JSON.
func (p *Publisher) CallCompleted(tool string, ok bool, detail string) {
	p.publish(CallChannel, map[string]interface{}{
		"tool":   tool,
		"ok":     ok,
		"detail": detail,
	})
}

func (p *Publisher) publish(channel string, payload interface{}) {
	if p == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Printf("marshal telemetry payload: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.log.Printf("publish to %s: %v", channel, err)
	}
}

// Close releases the underlying redis connection. Safe to call on a nil
// Publisher.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
