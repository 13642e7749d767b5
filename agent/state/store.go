package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

var (
	ErrStateNotFound  = errors.New("session state not found")
	ErrInvalidSession = errors.New("session id is empty")
)

const (
	BackendMemory  = "memory"
	BackendBolt    = "bolt"
	BackendUpstash = "upstash"

	payloadVersion = 1
)

// Store maps a session id to its transcript. Implementations never see the
// system turn.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]contractx.Turn, error)
	Save(ctx context.Context, sessionID string, turns []contractx.Turn) error
	Delete(ctx context.Context, sessionID string) error
}

type Config struct {
	Backend        string        `default:"memory"`
	BoltPath       string        `split_words:"true" default:"sessions.db"`
	TTL            time.Duration `default:"24h"`
	KeyPrefix      string        `split_words:"true" default:"busan:complaint:session:"`
	LockPerSession bool          `split_words:"true" default:"true"`
	MaxTurns       int           `split_words:"true" default:"40"`
}

type sessionPayload struct {
	Version   int              `json:"version"`
	SessionID string           `json:"session_id"`
	Turns     []contractx.Turn `json:"turns"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func validSessionID(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrInvalidSession
	}
	return id, nil
}

func encodeSession(sessionID string, turns []contractx.Turn, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(sessionPayload{
		Version:   payloadVersion,
		SessionID: sessionID,
		Turns:     turns,
		UpdatedAt: now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return payload, nil
}

func decodeSession(raw []byte) ([]contractx.Turn, error) {
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if p.Version > payloadVersion {
		return nil, fmt.Errorf("unsupported session payload version %d", p.Version)
	}
	return p.Turns, nil
}
