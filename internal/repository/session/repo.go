package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docchat/internal/db"
	"github.com/kailas-cloud/docchat/internal/domain"
	domsession "github.com/kailas-cloud/docchat/internal/domain/session"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "docchat:session:"

// store is the consumer interface for session persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Repo stores sessions as JSON values in a key-value store.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a session repository. ttl <= 0 stores sessions without expiry.
func New(s store, prefix string, ttl time.Duration) *Repo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Get loads a session by id.
func (r *Repo) Get(ctx context.Context, id string) (domsession.Session, error) {
	data, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domsession.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
		}
		return domsession.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	var s domsession.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return domsession.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

// Save writes the session, refreshing its TTL.
func (r *Repo) Save(ctx context.Context, s domsession.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	if r.ttl > 0 {
		err = r.store.SetWithTTL(ctx, r.key(s.ID), data, r.ttl)
	} else {
		err = r.store.Set(ctx, r.key(s.ID), data)
	}
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Ping checks the backing store.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.prefix + id
}
