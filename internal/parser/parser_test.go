package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// sequenceCaller replays canned responses in order, then repeats the last.
type sequenceCaller struct {
	responses []string
	calls     int
}

func (s *sequenceCaller) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

func newTestParser() *Parser {
	return New(nil, WithRetries(3), WithBackoff(time.Millisecond), WithCallTimeout(time.Second))
}

func TestParseAcceptsValidResponse(t *testing.T) {
	dir := t.TempDir()
	caller := &sequenceCaller{responses: []string{`{"title": "T", "subtitle": "S"}`}}

	res, err := newTestParser().Parse(context.Background(), caller, Request{
		Prompt:       "p",
		Dir:          dir,
		Filename:     "test.txt",
		ExpectedKeys: []string{"title", "subtitle"},
		Flatten:      true,
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := res.Value.Get("title").Str(); got != "T" {
		t.Errorf("title = %q, want T", got)
	}
	if caller.calls != 1 {
		t.Errorf("calls = %d, want 1", caller.calls)
	}
}

func TestParseRetriesMalformedThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	caller := &sequenceCaller{responses: []string{
		"sorry, here is your journal:",
		`{"title": "T"`,
		`{"title": "T"}`,
	}}

	res, err := newTestParser().Parse(context.Background(), caller, Request{
		Prompt:       "p",
		Dir:          dir,
		Filename:     "retry.txt",
		ExpectedKeys: []string{"title"},
		Flatten:      true,
	})
	if err != nil {
		t.Fatalf("Parse failed after retries: %v", err)
	}
	if caller.calls != 3 {
		t.Errorf("calls = %d, want 3", caller.calls)
	}
	if got := res.Value.Get("title").Str(); got != "T" {
		t.Errorf("title = %q, want T", got)
	}
}

func TestParseRejectsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	caller := &sequenceCaller{responses: []string{`{"title": "T"}`}}

	_, err := newTestParser().Parse(context.Background(), caller, Request{
		Prompt:       "p",
		Dir:          dir,
		Filename:     "missing.txt",
		ExpectedKeys: []string{"title", "subtitle"},
		Flatten:      true,
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ExhaustedError", err)
	}
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("ExhaustedError should unwrap to ErrMalformedResponse, got %v", exhausted.Last)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", exhausted.Attempts)
	}
}

func TestParseExhaustedLeavesTranscriptOnDisk(t *testing.T) {
	dir := t.TempDir()
	caller := &sequenceCaller{responses: []string{"not json at all"}}

	_, err := newTestParser().Parse(context.Background(), caller, Request{
		Prompt:   "p",
		Dir:      dir,
		Filename: "exhausted.txt",
		Flatten:  true,
	})
	if err == nil {
		t.Fatal("expected error for unparseable responses")
	}

	data, readErr := os.ReadFile(filepath.Join(dir, "exhausted.txt"))
	if readErr != nil {
		t.Fatalf("transcript missing after exhaustion: %v", readErr)
	}
	if string(data) != "not json at all" {
		t.Errorf("transcript = %q, want last raw response", data)
	}
}

func TestParseRecoversFromTranscript(t *testing.T) {
	dir := t.TempDir()

	// A valid reply already sits on disk from a previous attempt, but the
	// live caller keeps producing garbage.
	if err := os.WriteFile(filepath.Join(dir, "recover.txt"), []byte(`{"title": "saved"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	// failCaller errors on every call, so no transcript overwrite happens.
	caller := failCaller{}
	res, err := newTestParser().Parse(context.Background(), caller, Request{
		Prompt:       "p",
		Dir:          dir,
		Filename:     "recover.txt",
		ExpectedKeys: []string{"title"},
		Flatten:      true,
	})
	if err != nil {
		t.Fatalf("expected transcript recovery, got %v", err)
	}
	if got := res.Value.Get("title").Str(); got != "saved" {
		t.Errorf("title = %q, want saved", got)
	}
}

type failCaller struct{}

func (failCaller) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("model unavailable")
}

func TestParseStripsFencedResponse(t *testing.T) {
	dir := t.TempDir()
	caller := &sequenceCaller{responses: []string{"```json\n{\"title\": \"T\"}\n```"}}

	res, err := newTestParser().Parse(context.Background(), caller, Request{
		Prompt:       "p",
		Dir:          dir,
		Filename:     "fenced.txt",
		ExpectedKeys: []string{"title"},
		Flatten:      true,
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := res.Value.Get("title").Str(); got != "T" {
		t.Errorf("title = %q, want T", got)
	}

	// The transcript keeps the raw fenced text, not the stripped version.
	data, _ := os.ReadFile(filepath.Join(dir, "fenced.txt"))
	if string(data) != "```json\n{\"title\": \"T\"}\n```" {
		t.Errorf("transcript = %q, want raw response preserved", data)
	}
}

func TestParseHonoursContextCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	caller := &sequenceCaller{responses: []string{"garbage", "garbage"}}
	_, err := New(nil, WithRetries(3), WithBackoff(time.Hour)).Parse(ctx, caller, Request{
		Prompt:   "p",
		Dir:      dir,
		Filename: "ctx.txt",
		Flatten:  true,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled from backoff wait", err)
	}
}
