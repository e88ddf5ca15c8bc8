// Package demo runs the byte-at-a-time attack end to end against a freshly
// built oracle: the host-facing entry point shared by the HTTP gateway and
// the wasm bindings.
package demo

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"

	"EcbBreaker/server/internal/attack"
	"EcbBreaker/server/internal/oracle"
	"EcbBreaker/server/internal/pkg/helpers"
	"EcbBreaker/server/internal/protocol"
)

// Store persists run summaries. A nil Store keeps no history.
type Store interface {
	SaveRun(ctx context.Context, rec *protocol.RunRecord) error
}

// Options are the defaults applied to every run.
type Options struct {
	Algorithm  string
	Mode       string
	Padding    string
	Workers    int
	MaxQueries int64
	Filler     byte
}

// Request is one demo run. Empty Algorithm, Mode and Padding fall back to
// the service options.
type Request struct {
	Key           []byte
	AttackerInput []byte
	Unknown       []byte
	Algorithm     string
	Mode          string
	Padding       string
}

// Result is what a run returns to the host.
type Result struct {
	RunID string
	// Ciphertext is the oracle output for the attacker input alone.
	Ciphertext   []byte
	Recovered    []byte
	Steps        []string
	Complete     bool
	BlockSize    int
	SecretLength int
	Queries      int64
}

type Service struct {
	store            Store
	opts             Options
	logger           *helpers.Logger
	broadcastHandler func(event interface{})
}

func NewService(store Store, opts Options) *Service {
	if opts.Algorithm == "" {
		opts.Algorithm = string(protocol.AES)
	}
	if opts.Mode == "" {
		opts.Mode = string(protocol.ECB)
	}
	if opts.Padding == "" {
		opts.Padding = string(protocol.PKCS7)
	}
	if opts.Filler == 0 {
		opts.Filler = attack.DefaultFiller
	}
	return &Service{
		store:  store,
		opts:   opts,
		logger: helpers.NewLogger("Demo"),
	}
}

// SetBroadcastHandler sets the callback for broadcasting events
func (s *Service) SetBroadcastHandler(handler func(event interface{})) {
	s.broadcastHandler = handler
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(l *helpers.Logger) {
	s.logger = l
}

func (s *Service) broadcast(eventType, runID string, data interface{}) {
	if s.broadcastHandler == nil {
		return
	}
	s.broadcastHandler(&protocol.WebSocketEvent{Type: eventType, RunID: runID, Data: data})
}

// Run encrypts attacker_input || unknown under key, then recovers unknown
// through the oracle alone, treating attacker_input as a known prefix.
// Invalid keys fail before the oracle is queried. An incomplete recovery is
// not an error: Result.Complete reports it.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	cfg := oracle.Config{
		Algorithm: pick(req.Algorithm, s.opts.Algorithm),
		Mode:      pick(req.Mode, s.opts.Mode),
		Padding:   pick(req.Padding, s.opts.Padding),
		Key:       req.Key,
		Suffix:    req.Unknown,
	}
	target, err := oracle.New(cfg)
	if err != nil {
		s.logger.Warn("rejected demo run", "algorithm", cfg.Algorithm, "error", err)
		return nil, err
	}
	metered := oracle.NewMetered(target, s.opts.MaxQueries)

	runID := uuid.NewString()
	steps := attack.NewStepLog()
	steps.Observe(func(index int, message string) {
		s.broadcast(protocol.EventStep, runID, protocol.StepEvent{Index: index, Message: message})
	})
	s.broadcast(protocol.EventRunStarted, runID, nil)
	s.logger.Info("run started", "run_id", runID, "algorithm", cfg.Algorithm, "mode", cfg.Mode, "padding", cfg.Padding)

	ciphertext, err := metered.Encrypt(ctx, req.AttackerInput)
	if err != nil {
		return nil, s.fail(runID, err)
	}
	steps.Appendf("Ciphertext length: %d bytes", len(ciphertext))

	breaker := &attack.Breaker{
		Oracle:  metered,
		Prefix:  req.AttackerInput,
		Filler:  s.opts.Filler,
		Workers: s.opts.Workers,
		Log:     steps,
	}
	report, err := breaker.Run(ctx)
	if err != nil {
		return nil, s.fail(runID, err)
	}

	res := &Result{
		RunID:        runID,
		Ciphertext:   ciphertext,
		Recovered:    report.Recovery.Secret,
		Steps:        steps.Entries(),
		Complete:     report.Recovery.Complete,
		BlockSize:    report.BlockSize,
		SecretLength: report.SecretLength,
		Queries:      metered.Queries(),
	}
	if err := report.Recovery.Err(); err != nil {
		s.logger.Warn("run incomplete", "run_id", runID, "error", err)
	}

	s.save(ctx, cfg, res)
	s.broadcast(protocol.EventRunFinished, runID, res.Summary())
	s.logger.Info("run finished", "run_id", runID, "bytes", len(res.Recovered), "complete", res.Complete, "queries", res.Queries)
	return res, nil
}

func (s *Service) fail(runID string, err error) error {
	s.logger.Error("run failed", err, "run_id", runID)
	s.broadcast(protocol.EventRunFailed, runID, protocol.ErrorResponse{Error: err.Error()})
	return err
}

func (s *Service) save(ctx context.Context, cfg oracle.Config, res *Result) {
	if s.store == nil {
		return
	}
	rec := &protocol.RunRecord{
		RunID:          res.RunID,
		Algorithm:      strings.ToUpper(cfg.Algorithm),
		Mode:           strings.ToUpper(cfg.Mode),
		Padding:        strings.ToUpper(cfg.Padding),
		BlockSize:      res.BlockSize,
		SecretLength:   res.SecretLength,
		RecoveredBytes: len(res.Recovered),
		Complete:       res.Complete,
		Queries:        res.Queries,
		Steps:          len(res.Steps),
	}
	if err := s.store.SaveRun(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("failed to save run", err, "run_id", res.RunID)
	}
}

// Summary is the run_finished event payload. It omits the recovered bytes.
func (r *Result) Summary() map[string]interface{} {
	return map[string]interface{}{
		"block_size":      r.BlockSize,
		"secret_length":   r.SecretLength,
		"recovered_bytes": len(r.Recovered),
		"complete":        r.Complete,
		"queries":         r.Queries,
	}
}

// Response converts the result to its JSON form.
func (r *Result) Response() *protocol.DemoResponse {
	return &protocol.DemoResponse{
		RunID:         r.RunID,
		Ciphertext:    hex.EncodeToString(r.Ciphertext),
		Recovered:     hex.EncodeToString(r.Recovered),
		RecoveredText: string(r.Recovered),
		Steps:         r.Steps,
		Complete:      r.Complete,
		BlockSize:     r.BlockSize,
		SecretLength:  r.SecretLength,
		Queries:       r.Queries,
	}
}

func pick(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
