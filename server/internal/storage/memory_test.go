package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"EcbBreaker/server/internal/protocol"
)

func TestMemoryOperators(t *testing.T) {
	m := NewMemory()

	id, err := m.CreateOperator("alice", "hash")
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}
	if _, err := m.CreateOperator("alice", "other"); !errors.Is(err, ErrDuplicateOperator) {
		t.Fatalf("duplicate error = %v", err)
	}

	op, err := m.GetOperatorByUsername("alice")
	if err != nil || op == nil {
		t.Fatalf("GetOperatorByUsername: %v, %v", op, err)
	}
	if op.HashedPassword != "hash" {
		t.Fatalf("HashedPassword = %q", op.HashedPassword)
	}

	missing, err := m.GetOperatorByUsername("bob")
	if err != nil || missing != nil {
		t.Fatalf("missing operator = %v, %v", missing, err)
	}
}

func TestMemoryRunsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := &protocol.RunRecord{RunID: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := m.SaveRun(ctx, rec); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		if rec.ID != int64(i+1) {
			t.Fatalf("rec.ID = %d", rec.ID)
		}
	}

	runs, err := m.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	if got := strings.Join(ids, ""); got != "edc" {
		t.Fatalf("order = %q, want edc", got)
	}

	all, _ := m.ListRuns(ctx, 0)
	if len(all) != 5 {
		t.Fatalf("len(all) = %d", len(all))
	}

	// returned records are copies
	all[0].RunID = "mutated"
	again, _ := m.ListRuns(ctx, 1)
	if again[0].RunID != "e" {
		t.Fatalf("store was mutated through ListRuns result")
	}
}

func TestMemorySaveRunHonoursContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.SaveRun(ctx, &protocol.RunRecord{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "u", Password: "p", Database: "runs", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=runs sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN() = %q", got)
	}
}
