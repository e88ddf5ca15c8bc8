package demo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"EcbBreaker/server/internal/attack"
	"EcbBreaker/server/internal/oracle"
	"EcbBreaker/server/internal/pkg/encryption"
	"EcbBreaker/server/internal/protocol"
	"EcbBreaker/server/internal/storage"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []*protocol.WebSocketEvent
}

func (r *eventRecorder) handle(event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(*protocol.WebSocketEvent))
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(store Store) *Service {
	return NewService(store, Options{Workers: 4})
}

func TestRunRecoversHello(t *testing.T) {
	svc := newTestService(nil)
	res, err := svc.Run(context.Background(), Request{
		Key:     make([]byte, 16),
		Unknown: []byte("HELLO"),
	})
	require.NoError(t, err)

	require.Equal(t, []byte("HELLO"), res.Recovered)
	require.True(t, res.Complete)
	require.Equal(t, 16, res.BlockSize)
	require.Equal(t, 5, res.SecretLength)
	require.Len(t, res.Ciphertext, 16)
	require.NotEmpty(t, res.RunID)

	want := []string{
		"Ciphertext length: 16 bytes",
		"Detected block size: 16",
		"ECB detected via repeated-block heuristic",
		"Estimated secret length: 5",
		"Beginning byte-at-a-time recovery (5 bytes)",
		"Recovered byte 1: 0x48 (H)",
		"Recovered byte 2: 0x45 (E)",
		"Recovered byte 3: 0x4c (L)",
		"Recovered byte 4: 0x4c (L)",
		"Recovered byte 5: 0x4f (O)",
		"Recovery complete: 5/5 bytes",
	}
	require.Equal(t, want, res.Steps)

	recovered := 0
	for _, s := range res.Steps {
		if strings.HasPrefix(s, "Recovered byte") {
			recovered++
		}
	}
	require.Equal(t, 5, recovered)
	require.Greater(t, res.Queries, int64(5*257))
}

func TestRunEmptyUnknown(t *testing.T) {
	svc := newTestService(nil)
	res, err := svc.Run(context.Background(), Request{Key: make([]byte, 16)})
	require.NoError(t, err)

	require.Empty(t, res.Recovered)
	require.True(t, res.Complete)
	require.Len(t, res.Ciphertext, 16)
	require.Contains(t, res.Steps, "Estimated secret length: 0")
	require.Contains(t, res.Steps, "Recovery complete: 0/0 bytes")
}

func TestRunCiphertextMatchesOracle(t *testing.T) {
	key := []byte("YELLOW SUBMARINE")
	attackerInput := []byte("user=")
	unknown := []byte("role=admin&uid=10")

	svc := newTestService(nil)
	res, err := svc.Run(context.Background(), Request{Key: key, AttackerInput: attackerInput, Unknown: unknown})
	require.NoError(t, err)
	require.Equal(t, unknown, res.Recovered)

	o, err := oracle.New(oracle.Config{Algorithm: "AES", Key: key, Suffix: unknown})
	require.NoError(t, err)
	want, err := o.Encrypt(context.Background(), attackerInput)
	require.NoError(t, err)
	require.Equal(t, want, res.Ciphertext)
	require.Equal(t, fmt.Sprintf("Ciphertext length: %d bytes", len(want)), res.Steps[0])
}

func TestRunDifferentKeys(t *testing.T) {
	svc := newTestService(nil)
	unknown := []byte("same secret, different key")

	a, err := svc.Run(context.Background(), Request{Key: bytes.Repeat([]byte{1}, 16), Unknown: unknown})
	require.NoError(t, err)
	b, err := svc.Run(context.Background(), Request{Key: bytes.Repeat([]byte{2}, 16), Unknown: unknown})
	require.NoError(t, err)

	require.NotEqual(t, a.Ciphertext, b.Ciphertext)
	require.Equal(t, unknown, a.Recovered)
	require.Equal(t, unknown, b.Recovered)
}

func TestRunIsRepeatable(t *testing.T) {
	svc := newTestService(nil)
	req := Request{Key: []byte("0123456789abcdef"), AttackerInput: []byte("hi"), Unknown: []byte("Rollin' in my 5.0\n")}

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, first.Ciphertext, second.Ciphertext)
	require.Equal(t, first.Recovered, second.Recovered)
	require.Equal(t, first.Steps, second.Steps)
	require.NotEqual(t, first.RunID, second.RunID)
}

func TestRunOtherCiphers(t *testing.T) {
	tests := []struct {
		algorithm string
		key       []byte
		padding   string
		blockSize int
	}{
		{"DES", []byte("8bytekey"), "PKCS7", 8},
		{"RC6", []byte("sixteen byte key"), "ANSI_X923", 16},
		{"aes", make([]byte, 16), "ZEROS", 16},
	}

	unknown := []byte("the quick brown fox")
	for _, tt := range tests {
		t.Run(tt.algorithm+"/"+tt.padding, func(t *testing.T) {
			svc := newTestService(nil)
			res, err := svc.Run(context.Background(), Request{
				Key:       tt.key,
				Unknown:   unknown,
				Algorithm: tt.algorithm,
				Padding:   tt.padding,
			})
			require.NoError(t, err)
			require.Equal(t, tt.blockSize, res.BlockSize)
			require.Equal(t, unknown, res.Recovered)
		})
	}
}

func TestRunRejectsBadKeyBeforeQuerying(t *testing.T) {
	rec := &eventRecorder{}
	svc := newTestService(nil)
	svc.SetBroadcastHandler(rec.handle)

	res, err := svc.Run(context.Background(), Request{Key: make([]byte, 15), Unknown: []byte("HELLO")})
	require.Nil(t, res)
	require.ErrorIs(t, err, encryption.ErrInvalidKeySize)

	var kerr *encryption.KeyLengthError
	require.True(t, errors.As(err, &kerr))
	require.Equal(t, 15, kerr.Got)
	require.Equal(t, 16, kerr.Want)
	require.Empty(t, rec.types())
}

func TestRunRejectsCBC(t *testing.T) {
	rec := &eventRecorder{}
	svc := newTestService(nil)
	svc.SetBroadcastHandler(rec.handle)

	_, err := svc.Run(context.Background(), Request{Key: make([]byte, 16), Unknown: []byte("HELLO"), Mode: "CBC"})
	require.ErrorIs(t, err, attack.ErrDetectionFailure)

	types := rec.types()
	require.Equal(t, protocol.EventRunStarted, types[0])
	require.Equal(t, protocol.EventRunFailed, types[len(types)-1])
}

func TestRunQueryBudget(t *testing.T) {
	svc := NewService(nil, Options{MaxQueries: 50})
	_, err := svc.Run(context.Background(), Request{Key: make([]byte, 16), Unknown: []byte("HELLO")})
	require.ErrorIs(t, err, oracle.ErrBudgetExceeded)
}

func TestRunSavesRecord(t *testing.T) {
	store := storage.NewMemory()
	svc := newTestService(store)

	res, err := svc.Run(context.Background(), Request{Key: make([]byte, 8), Unknown: []byte("HELLO"), Algorithm: "des"})
	require.NoError(t, err)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	require.Equal(t, res.RunID, got.RunID)
	require.Equal(t, "DES", got.Algorithm)
	require.Equal(t, "ECB", got.Mode)
	require.Equal(t, "PKCS7", got.Padding)
	require.Equal(t, 8, got.BlockSize)
	require.Equal(t, 5, got.RecoveredBytes)
	require.True(t, got.Complete)
	require.Equal(t, res.Queries, got.Queries)
	require.Equal(t, len(res.Steps), got.Steps)
}

func TestRunBroadcastsSteps(t *testing.T) {
	rec := &eventRecorder{}
	svc := newTestService(nil)
	svc.SetBroadcastHandler(rec.handle)

	res, err := svc.Run(context.Background(), Request{Key: make([]byte, 16), Unknown: []byte("HI")})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, len(res.Steps)+2)
	require.Equal(t, protocol.EventRunStarted, rec.events[0].Type)
	require.Equal(t, protocol.EventRunFinished, rec.events[len(rec.events)-1].Type)

	for i, step := range res.Steps {
		ev := rec.events[i+1]
		require.Equal(t, protocol.EventStep, ev.Type)
		require.Equal(t, res.RunID, ev.RunID)
		require.Equal(t, protocol.StepEvent{Index: i, Message: step}, ev.Data)
	}
}

func TestResultResponse(t *testing.T) {
	res := &Result{RunID: "r", Ciphertext: []byte{0xde, 0xad}, Recovered: []byte("HI"), Steps: []string{"a"}, Complete: true}
	resp := res.Response()
	require.Equal(t, "dead", resp.Ciphertext)
	require.Equal(t, "4849", resp.Recovered)
	require.Equal(t, "HI", resp.RecoveredText)
	require.True(t, resp.Complete)
}
