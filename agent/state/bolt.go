package state

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	bolt "go.etcd.io/bbolt"
)

const bucketSessions = "sessions"

// BoltStore persists transcripts in a single-node bbolt file.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Load(_ context.Context, sessionID string) ([]contractx.Turn, error) {
	id, err := validSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSessions)).Get([]byte(id))
		if v == nil {
			return ErrStateNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

func (s *BoltStore) Save(_ context.Context, sessionID string, turns []contractx.Turn) error {
	id, err := validSessionID(sessionID)
	if err != nil {
		return err
	}
	payload, err := encodeSession(id, turns, s.now())
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Put([]byte(id), payload)
	})
}

func (s *BoltStore) Delete(_ context.Context, sessionID string) error {
	id, err := validSessionID(sessionID)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Delete([]byte(id))
	})
}
