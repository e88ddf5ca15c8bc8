// Package challenge hosts hidden oracles: the server keeps the key and the
// secret, and clients can only submit input and check a final guess.
package challenge

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"EcbBreaker/server/internal/oracle"
	"EcbBreaker/server/internal/pkg/encryption"
	"EcbBreaker/server/internal/pkg/helpers"
	"EcbBreaker/server/internal/protocol"
)

var (
	ErrSessionNotFound = errors.New("challenge session not found")
	ErrTooManySessions = errors.New("too many challenge sessions")
)

// Options configures session lifetime and limits.
type Options struct {
	TTL         time.Duration
	MaxSessions int
	// DefaultSecret is used when a request carries no secret.
	DefaultSecret string
}

type session struct {
	algorithm string
	oracle    *oracle.BlockCipherOracle
	secret    []byte
	expiresAt time.Time
}

type Service struct {
	mu       sync.Mutex
	sessions map[string]*session
	opts     Options
	now      func() time.Time
	logger   *helpers.Logger
}

func NewService(opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &Service{
		sessions: make(map[string]*session),
		opts:     opts,
		now:      time.Now,
		logger:   helpers.NewLogger("Challenge"),
	}
}

// Create starts a session with a random key. The key never leaves the
// service.
func (s *Service) Create(in *protocol.ChallengeCreateRequest) (*protocol.ChallengeCreateResponse, error) {
	req := *in
	if req.Secret == "" {
		req.Secret = s.opts.DefaultSecret
	}
	if err := helpers.ValidateChallengeRequest(&req); err != nil {
		return nil, err
	}

	name := req.Algorithm
	if name == "" {
		name = string(protocol.AES)
	}
	alg, err := encryption.Lookup(name)
	if err != nil {
		return nil, err
	}

	key := make([]byte, alg.BlockSize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	o, err := oracle.New(oracle.Config{
		Algorithm: alg.Name,
		Mode:      string(protocol.ECB),
		Padding:   req.Padding,
		Key:       key,
		Suffix:    []byte(req.Secret),
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	if s.opts.MaxSessions > 0 && len(s.sessions) >= s.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	sess := &session{
		algorithm: alg.Name,
		oracle:    o,
		secret:    []byte(req.Secret),
		expiresAt: s.now().Add(s.opts.TTL),
	}
	s.sessions[id] = sess
	s.logger.Info("session created", "id", id, "algorithm", alg.Name, "padding", strings.ToUpper(req.Padding))

	return &protocol.ChallengeCreateResponse{
		ID:        id,
		Algorithm: alg.Name,
		ExpiresAt: sess.expiresAt.Unix(),
	}, nil
}

// Encrypt runs one oracle query for session id.
func (s *Service) Encrypt(ctx context.Context, id string, input []byte) ([]byte, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return sess.oracle.Encrypt(ctx, input)
}

// Verify reports whether guess equals the session secret.
func (s *Service) Verify(id string, guess []byte) (bool, error) {
	sess, err := s.get(id)
	if err != nil {
		return false, err
	}
	ok := subtle.ConstantTimeCompare(sess.secret, guess) == 1
	s.logger.Info("guess verified", "id", id, "correct", ok)
	return ok, nil
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	return len(s.sessions)
}

func (s *Service) get(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%w: %s expired", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) purgeLocked() {
	now := s.now()
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
