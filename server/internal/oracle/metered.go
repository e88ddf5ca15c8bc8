package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var ErrBudgetExceeded = errors.New("oracle query budget exceeded")

// Metered counts queries to the wrapped oracle and refuses to forward any
// once the limit is reached. A limit of zero or less means unlimited.
type Metered struct {
	next    Oracle
	limit   int64
	queries atomic.Int64
}

func NewMetered(next Oracle, limit int64) *Metered {
	return &Metered{next: next, limit: limit}
}

func (m *Metered) Encrypt(ctx context.Context, input []byte) ([]byte, error) {
	n := m.queries.Add(1)
	if m.limit > 0 && n > m.limit {
		return nil, fmt.Errorf("%w: limit %d", ErrBudgetExceeded, m.limit)
	}
	return m.next.Encrypt(ctx, input)
}

// Queries returns the number of queries attempted so far.
func (m *Metered) Queries() int64 {
	return m.queries.Load()
}
