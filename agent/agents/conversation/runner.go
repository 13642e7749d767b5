package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	statex "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/state"
)

const DefaultSessionID = "default"

type handler interface {
	Handle(ctx context.Context, in Input) (Result, error)
}

// Sessions binds the controller to a session store. With LockPerSession a
// session's load, cycle and save run under one mutex.
type Sessions struct {
	store    statex.Store
	ctrl     handler
	locker   *statex.KeyedLocker
	maxTurns int
}

func NewSessions(store statex.Store, ctrl *Controller, cfg statex.Config) (*Sessions, error) {
	if ctrl == nil {
		return nil, errors.New("controller is required")
	}
	return newSessions(store, ctrl, cfg)
}

func newSessions(store statex.Store, ctrl handler, cfg statex.Config) (*Sessions, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	s := &Sessions{store: store, ctrl: ctrl, maxTurns: cfg.MaxTurns}
	if cfg.LockPerSession {
		s.locker = statex.NewKeyedLocker()
	}
	return s, nil
}

func (s *Sessions) Chat(ctx context.Context, sessionID, message, imageData string, env contractx.ToolEnv) (Result, error) {
	sessionID = SessionIDOrDefault(sessionID)
	if s.locker != nil {
		unlock := s.locker.Lock(sessionID)
		defer unlock()
	}

	logger := log.Ctx(ctx).With().Str("session_id", sessionID).Logger()
	ctx = logger.WithContext(ctx)

	history, err := s.History(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	res, err := s.ctrl.Handle(ctx, Input{
		History:   history,
		Message:   message,
		ImageData: imageData,
		Env:       env,
	})
	if err != nil {
		return Result{}, err
	}
	if res.Failed {
		return res, nil
	}

	res.History = TrimHistory(res.History, s.maxTurns)
	if err := s.store.Save(ctx, sessionID, res.History); err != nil {
		// The reply is still valid; the next cycle starts from older history.
		logger.Error().Err(err).Msg("save session failed")
	}
	return res, nil
}

func (s *Sessions) History(ctx context.Context, sessionID string) ([]contractx.Turn, error) {
	turns, err := s.store.Load(ctx, SessionIDOrDefault(sessionID))
	if errors.Is(err, statex.ErrStateNotFound) {
		return nil, nil
	}
	return turns, err
}

func (s *Sessions) Reset(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, SessionIDOrDefault(sessionID))
}

func SessionIDOrDefault(sessionID string) string {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id
	}
	return DefaultSessionID
}

// TrimHistory keeps at most limit turns and always starts on a user turn, so a
// tool turn is never separated from its request.
func TrimHistory(turns []contractx.Turn, limit int) []contractx.Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	start := len(turns) - limit
	for start < len(turns) && turns[start].Role != contractx.RoleUser {
		start++
	}
	return append([]contractx.Turn(nil), turns[start:]...)
}
