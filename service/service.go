// Package service answers codebook validation requests over NATS.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/config"
	"github.com/c360studio/codebook/schema"
)

// ValidateResponse is the reply sent for each validation request.
type ValidateResponse struct {
	RequestID string   `json:"request_id"`
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Version   string   `json:"version,omitempty"`
	Mappings  int      `json:"mappings"`
	Targets   int      `json:"targets"`
}

// Service validates codebook documents received on a NATS subject.
type Service struct {
	nats      config.NATSConfig
	opts      codebook.CheckOptions
	validator *schema.Validator
	metrics   *Metrics
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time

	mu  sync.Mutex
	sub *nats.Subscription
}

// New creates a validation service. A nil metrics disables instrumentation.
func New(cfg *config.Config, validator *schema.Validator, metrics *Metrics, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		nats: cfg.NATS,
		opts: codebook.CheckOptions{
			Strict:   cfg.Validation.IsStrict(),
			SkipLint: cfg.Validation.IsSkipLint(),
		},
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

// Handle validates one document and builds the reply.
func (s *Service) Handle(data []byte) *ValidateResponse {
	start := s.now()
	report := codebook.Check(s.validator, data, s.opts)
	s.metrics.observe(report, s.now().Sub(start))

	resp := &ValidateResponse{
		RequestID: s.newID(),
		Valid:     report.Valid,
		Errors:    report.Errors,
		Warnings:  report.Warnings,
	}
	if cb := report.Codebook; cb != nil {
		resp.Version = cb.Version
		resp.Mappings = len(cb.Mappings)
		resp.Targets = len(cb.Targets())
	}
	return resp
}

// Start subscribes to the configured subject within the queue group.
func (s *Service) Start(ctx context.Context, nc *nats.Conn) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before subscribe: %w", err)
	}
	if nc == nil {
		return fmt.Errorf("nats connection is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return fmt.Errorf("service already started")
	}

	sub, err := nc.QueueSubscribe(s.nats.Subject, s.nats.Queue, s.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.nats.Subject, err)
	}
	s.sub = sub

	s.logger.Info("Validation service started",
		"subject", s.nats.Subject,
		"queue", s.nats.Queue,
		"schema", s.validator.Name())
	return nil
}

// Stop drains the subscription so in-flight requests still get replies.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	return err
}

func (s *Service) handleMsg(msg *nats.Msg) {
	resp := s.Handle(msg.Data)

	s.logger.Debug("Validated codebook",
		"request_id", resp.RequestID,
		"valid", resp.Valid,
		"errors", len(resp.Errors),
		"warnings", len(resp.Warnings))

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to marshal response", "request_id", resp.RequestID, "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("Failed to send response", "request_id", resp.RequestID, "error", err)
	}
}
