package attack

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"EcbBreaker/server/internal/oracle"
	"EcbBreaker/server/internal/pkg/encryption/modes"
	"EcbBreaker/server/internal/pkg/encryption/padding"
)

var testKey = []byte("YELLOW SUBMARINE")

func printable(r *rand.Rand, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(0x20 + r.Intn(0x7f-0x20))
	}
	return buf
}

func countPrefix(entries []string, prefix string) int {
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func TestRunRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(12))
	ctx := context.Background()

	for n := 0; n <= 64; n++ {
		secret := printable(r, n)
		b := NewBreaker(newAESOracle(t, testKey, secret))
		b.Prefix = printable(r, r.Intn(20))
		b.Workers = 1 + n%4

		report, err := b.Run(ctx)
		if err != nil {
			t.Fatalf("length %d: Run failed: %v", n, err)
		}
		if report.BlockSize != 16 || report.SecretLength != n {
			t.Fatalf("length %d: detected block size %d, secret length %d", n, report.BlockSize, report.SecretLength)
		}
		if !report.Recovery.Complete || report.Recovery.Err() != nil {
			t.Fatalf("length %d: recovery incomplete: %v", n, report.Recovery.Err())
		}
		if !bytes.Equal(report.Recovery.Secret, secret) {
			t.Fatalf("length %d: recovered %q, want %q", n, report.Recovery.Secret, secret)
		}
		if got := countPrefix(b.Log.Entries(), "Recovered byte"); got != n {
			t.Fatalf("length %d: %d byte-recovery steps", n, got)
		}
	}
}

func TestRunAcrossCiphersAndPadders(t *testing.T) {
	secret := []byte("Rollin' in my 5.0\nWith my rag-top down")
	ciphers := []struct {
		name string
		key  []byte
	}{
		{"AES", testKey},
		{"DES", testKey[:8]},
		{"RC6", testKey},
	}

	for _, c := range ciphers {
		for _, pad := range []string{"PKCS7", "ZEROS", "ANSI_X923"} {
			t.Run(c.name+"/"+pad, func(t *testing.T) {
				o, err := oracle.New(oracle.Config{Algorithm: c.name, Padding: pad, Key: c.key, Suffix: secret})
				if err != nil {
					t.Fatalf("oracle.New failed: %v", err)
				}
				b := NewBreaker(o)
				b.Workers = 4
				report, err := b.Run(context.Background())
				if err != nil {
					t.Fatalf("Run failed: %v", err)
				}
				if !bytes.Equal(report.Recovery.Secret, secret) {
					t.Fatalf("recovered %q, want %q", report.Recovery.Secret, secret)
				}
			})
		}
	}
}

// Random padding bytes make the last block differ between identical queries.
func TestRunRejectsRandomPadding(t *testing.T) {
	secret := []byte("Rollin' in my 5.0\nWith my rag-top down")
	o, err := oracle.New(oracle.Config{Algorithm: "AES", Padding: "ISO_10126", Key: testKey, Suffix: secret})
	if err != nil {
		t.Fatalf("oracle.New failed: %v", err)
	}
	if _, err := NewBreaker(o).Run(context.Background()); !errors.Is(err, ErrDetectionFailure) {
		t.Fatalf("expected ErrDetectionFailure, got %v", err)
	}
}

func TestRunToyBlockSizes(t *testing.T) {
	secret := []byte("odd block sizes work too")
	for _, blockSize := range []int{8, 11, 20, 32} {
		b := NewBreaker(newTestOracle(t, newToyBlock(blockSize), secret))
		report, err := b.Run(context.Background())
		if err != nil {
			t.Fatalf("block size %d: Run failed: %v", blockSize, err)
		}
		if report.BlockSize != blockSize || !bytes.Equal(report.Recovery.Secret, secret) {
			t.Fatalf("block size %d: got size %d secret %q", blockSize, report.BlockSize, report.Recovery.Secret)
		}
	}
}

func TestRecoverSpecialBytes(t *testing.T) {
	secret := []byte{0x00, 0xff, 0x01, 0x80, 0x00, 0x10, 0xff, 'A', 0x00}
	b := NewBreaker(newAESOracle(t, testKey, secret))
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !bytes.Equal(report.Recovery.Secret, secret) {
		t.Fatalf("recovered %x, want %x", report.Recovery.Secret, secret)
	}
}

func TestRecoverEmptySecret(t *testing.T) {
	b := NewBreaker(newAESOracle(t, testKey, nil))
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Recovery.Secret) != 0 || !report.Recovery.Complete {
		t.Fatalf("expected empty complete recovery, got %+v", report.Recovery)
	}
	want := []string{
		"Detected block size: 16",
		"ECB detected via repeated-block heuristic",
		"Estimated secret length: 0",
		"Beginning byte-at-a-time recovery (0 bytes)",
		"Recovery complete: 0/0 bytes",
	}
	if got := b.Log.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("steps = %q, want %q", got, want)
	}
}

// Asking for more bytes than the secret holds walks into the padding: the
// first extra position matches the PKCS#7 byte 0x01, the next matches nothing.
func TestRecoverPastEndStopsEarly(t *testing.T) {
	secret := []byte("HELLO")
	b := NewBreaker(newAESOracle(t, testKey, secret))

	rec, err := b.Recover(context.Background(), 16, len(secret)+3)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if rec.Complete {
		t.Fatalf("expected incomplete recovery")
	}
	if !errors.Is(rec.Err(), ErrRecoveryIncomplete) {
		t.Fatalf("expected ErrRecoveryIncomplete, got %v", rec.Err())
	}
	if want := append(append([]byte{}, secret...), 0x01); !bytes.Equal(rec.Secret, want) {
		t.Fatalf("recovered %x, want %x", rec.Secret, want)
	}

	entries := b.Log.Entries()
	if countPrefix(entries, "No matching byte found at byte 7") != 1 {
		t.Fatalf("missing no-match entry in %q", entries)
	}
	if last := entries[len(entries)-1]; last != "Recovery stopped early: 6/8 bytes" {
		t.Fatalf("last step = %q", last)
	}
}

func TestRecoverNonDeterministicOracle(t *testing.T) {
	o, err := oracle.New(oracle.Config{Algorithm: "AES", Mode: "CBC", Key: testKey, Suffix: []byte("HELLO")})
	if err != nil {
		t.Fatalf("oracle.New failed: %v", err)
	}
	rec, err := NewBreaker(o).Recover(context.Background(), 16, 5)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if rec.Complete || len(rec.Secret) != 0 {
		t.Fatalf("expected nothing recovered from a CBC oracle, got %q", rec.Secret)
	}
}

func TestRecoverCollisionKeepsLowestByte(t *testing.T) {
	o, err := oracle.NewFromBlock(lossyBlock{newToyBlock(16)}, []byte("A"), &modes.ECBMode{}, &padding.PKCS7Padding{})
	if err != nil {
		t.Fatalf("NewFromBlock failed: %v", err)
	}
	b := NewBreaker(o)
	rec, err := b.Recover(context.Background(), 16, 1)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if !bytes.Equal(rec.Secret, []byte("@")) {
		t.Fatalf("recovered %q, want %q", rec.Secret, "@")
	}
	if rec.Collisions != 1 {
		t.Fatalf("Collisions = %d, want 1", rec.Collisions)
	}
	if countPrefix(b.Log.Entries(), "Dictionary collision at byte 1: 2 candidates") != 1 {
		t.Fatalf("collision not logged: %q", b.Log.Entries())
	}
}

func TestRecoverWorkersAgree(t *testing.T) {
	secret := []byte("concurrency must not change the answer")
	var results [][]byte
	var steps [][]string
	for _, workers := range []int{0, 1, 8, 64} {
		b := NewBreaker(newAESOracle(t, testKey, secret))
		b.Workers = workers
		report, err := b.Run(context.Background())
		if err != nil {
			t.Fatalf("workers %d: Run failed: %v", workers, err)
		}
		results = append(results, report.Recovery.Secret)
		steps = append(steps, b.Log.Entries())
	}
	for i := 1; i < len(results); i++ {
		if !bytes.Equal(results[i], results[0]) || !reflect.DeepEqual(steps[i], steps[0]) {
			t.Fatalf("run %d differs from serial run", i)
		}
	}
}

func TestRecoverQueryCount(t *testing.T) {
	secret := []byte("0123456789")
	queries := 0
	b := NewBreaker(counting(newAESOracle(t, testKey, secret), &queries))
	if _, err := b.Recover(context.Background(), 16, len(secret)); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if want := len(secret) * 257; queries != want {
		t.Fatalf("made %d queries, want %d", queries, want)
	}
}

func TestRunBudgetExceeded(t *testing.T) {
	m := oracle.NewMetered(newAESOracle(t, testKey, []byte("a longer secret")), 300)
	for _, workers := range []int{1, 8} {
		b := NewBreaker(m)
		b.Workers = workers
		if _, err := b.Run(context.Background()); !errors.Is(err, oracle.ErrBudgetExceeded) {
			t.Fatalf("workers %d: expected ErrBudgetExceeded, got %v", workers, err)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBreaker(newAESOracle(t, testKey, []byte("secret")))
	if _, err := b.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDictionaryCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inner := newAESOracle(t, testKey, []byte("secret"))
	calls := 0
	o := oracle.Func(func(c context.Context, input []byte) ([]byte, error) {
		calls++
		if calls == 10 {
			cancel()
		}
		return inner.Encrypt(c, input)
	})
	b := NewBreaker(o)
	if _, err := b.Recover(ctx, 16, 6); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecoverIsRepeatable(t *testing.T) {
	secret := []byte("same input, same output")
	var first *Report
	var firstSteps []string
	for i := 0; i < 2; i++ {
		b := NewBreaker(newAESOracle(t, testKey, secret))
		report, err := b.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if first == nil {
			first, firstSteps = report, b.Log.Entries()
			continue
		}
		if !bytes.Equal(report.Recovery.Secret, first.Recovery.Secret) || len(b.Log.Entries()) != len(firstSteps) {
			t.Fatalf("second run differs from the first")
		}
	}
}
