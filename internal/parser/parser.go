// Package parser turns free-text language-model replies into validated
// structured values, with retry and a file-based fallback.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrMalformedResponse marks a single attempt whose text was not valid JSON
// or was missing expected keys. It is retried locally and never surfaces
// past the parser unless all attempts are exhausted.
var ErrMalformedResponse = errors.New("malformed model response")

// ExhaustedError is returned when every attempt and the last-resort re-parse
// of the on-disk transcript failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("model response parsing exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// ModelCaller is the language-model collaborator: one prompt in, free text
// out. Calls may be slow; the parser wraps each one with its own timeout.
type ModelCaller interface {
	ChatCompletion(ctx context.Context, system, user string) (string, error)
}

// Request describes one parse site.
type Request struct {
	SystemPrompt string
	Prompt       string
	Dir          string   // transcript directory
	Filename     string   // transcript file, overwritten each attempt
	ExpectedKeys []string // flattened keys that must be present, optional
	Flatten      bool
}

// Result carries the accepted value plus its flattened view.
type Result struct {
	Value *Value
	Flat  map[string]*Value
}

// Parser retries a model call until its reply parses as the expected JSON.
// The raw text of the latest attempt is always persisted to disk before any
// parsing happens, so it is recoverable for postmortems and usable as a
// last-resort input when the live calls are exhausted.
type Parser struct {
	retries     int
	backoff     time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithRetries sets the number of model-call attempts.
func WithRetries(n int) Option { return func(p *Parser) { p.retries = n } }

// WithBackoff sets the fixed pause between attempts.
func WithBackoff(d time.Duration) Option { return func(p *Parser) { p.backoff = d } }

// WithCallTimeout bounds each individual model call.
func WithCallTimeout(d time.Duration) Option { return func(p *Parser) { p.callTimeout = d } }

// New creates a Parser with the given options. Defaults: 3 attempts,
// 2s backoff, 120s per-call timeout.
func New(logger *slog.Logger, opts ...Option) *Parser {
	p := &Parser{
		retries:     3,
		backoff:     2 * time.Second,
		callTimeout: 120 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Parse runs the retry protocol for one call site: call the model, persist
// the raw reply, strip fences, decode, flatten, validate expected keys. On
// failure it re-issues the same prompt up to the retry limit, then falls
// back to re-parsing the last transcript written to disk.
func (p *Parser) Parse(ctx context.Context, llm ModelCaller, req Request) (*Result, error) {
	var lastErr error

	for attempt := 1; attempt <= p.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.backoff):
			}
		}

		text, err := p.call(ctx, llm, req)
		if err != nil {
			lastErr = err
			p.logger.Warn("model call failed",
				"transcript", req.Filename, "attempt", attempt, "error", err)
			continue
		}

		if err := p.saveTranscript(req, text); err != nil {
			lastErr = err
			continue
		}

		res, err := decode(text, req)
		if err != nil {
			lastErr = err
			p.logger.Warn("model response rejected",
				"transcript", req.Filename, "attempt", attempt, "error", err)
			continue
		}
		return res, nil
	}

	// Last resort: the transcript on disk may hold a valid reply whose
	// acceptance was derailed by a later transient failure.
	if res, err := p.reparseTranscript(req); err == nil {
		p.logger.Info("recovered response from transcript", "transcript", req.Filename)
		return res, nil
	}

	return nil, &ExhaustedError{Attempts: p.retries, Last: lastErr}
}

func (p *Parser) call(ctx context.Context, llm ModelCaller, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return llm.ChatCompletion(callCtx, req.SystemPrompt, req.Prompt)
}

func (p *Parser) saveTranscript(req Request, text string) error {
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(req.Dir, req.Filename), []byte(text), 0o644)
}

func (p *Parser) reparseTranscript(req Request) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(req.Dir, req.Filename))
	if err != nil {
		return nil, err
	}
	return decode(string(data), req)
}

func decode(text string, req Request) (*Result, error) {
	stripped := stripFences(text)
	val, err := FromJSON([]byte(stripped))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	res := &Result{Value: val}
	if req.Flatten {
		res.Flat = val.Flatten()
		if missing := MissingKeys(res.Flat, req.ExpectedKeys); len(missing) > 0 {
			return nil, fmt.Errorf("%w: missing keys %v", ErrMalformedResponse, missing)
		}
	}
	return res, nil
}
