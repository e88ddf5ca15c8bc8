package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"EcbBreaker/server/internal/protocol"
)

// DefaultListLimit caps ListRuns when no positive limit is given.
const DefaultListLimit = 50

// ErrDuplicateOperator is returned when a username is already taken.
var ErrDuplicateOperator = errors.New("operator already exists")

// Memory keeps operators and runs in process. It is used when no database
// is configured and in tests.
type Memory struct {
	mu        sync.RWMutex
	operators map[string]*protocol.Operator
	runs      []*protocol.RunRecord
	nextOpID  int64
	nextRunID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{operators: make(map[string]*protocol.Operator)}
}

func (m *Memory) CreateOperator(username, hashedPassword string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.operators[username]; ok {
		return 0, ErrDuplicateOperator
	}
	m.nextOpID++
	m.operators[username] = &protocol.Operator{
		ID:             m.nextOpID,
		Username:       username,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().Unix(),
	}
	return m.nextOpID, nil
}

func (m *Memory) GetOperatorByUsername(username string) (*protocol.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, ok := m.operators[username]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

func (m *Memory) SaveRun(ctx context.Context, rec *protocol.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.nextRunID++
	rec.ID = m.nextRunID
	cp := *rec
	m.runs = append(m.runs, &cp)
	return nil
}

// ListRuns returns the most recent runs first.
func (m *Memory) ListRuns(ctx context.Context, limit int) ([]*protocol.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*protocol.RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if n := normalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
