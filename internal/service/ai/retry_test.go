package ai

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
)

func testConfig() config.AIConfig {
	return config.AIConfig{
		Provider:    config.ProviderGemini,
		Gemini:      config.GeminiConfig{APIKey: "key", Model: "gemini-2.5-flash"},
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
	}
}

type sleepRecorder struct {
	calls atomic.Int32
	last  atomic.Int64
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.calls.Add(1)
	r.last.Store(int64(d))
	return ctx.Err()
}

func newTestService(provider Provider) (*Service, *sleepRecorder) {
	svc := NewService(provider, testConfig())
	rec := &sleepRecorder{}
	svc.sleep = rec.sleep
	return svc, rec
}

func generate(svc *Service, req Request) (string, error) {
	stream, err := svc.Stream(context.Background(), req)
	if err != nil {
		return "", err
	}
	return Collect(stream)
}

func overload() error {
	return errors.Join(ErrOverloaded, errors.New("503 UNAVAILABLE"))
}

func TestStreamSucceedsAfterTwoOverloads(t *testing.T) {
	provider := NewMockProvider(
		MockTurn{Err: overload()},
		MockTurn{Err: overload()},
		MockTurn{Fragments: []string{"Hello", ", ", "world"}},
	)
	svc, rec := newTestService(provider)

	reply, err := generate(svc, Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if reply != "Hello, world" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if provider.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.Calls())
	}
	if rec.calls.Load() != 2 {
		t.Fatalf("expected 2 waits, got %d", rec.calls.Load())
	}
	if time.Duration(rec.last.Load()) != 2*time.Second {
		t.Fatalf("expected 2s delay, got %s", time.Duration(rec.last.Load()))
	}
}

func TestStreamGivesUpAfterMaxAttempts(t *testing.T) {
	provider := NewMockProvider(
		MockTurn{Err: overload()},
		MockTurn{Err: overload()},
		MockTurn{Err: overload()},
		MockTurn{Fragments: []string{"never"}},
	)
	svc, rec := newTestService(provider)

	_, err := generate(svc, Request{Prompt: "hi"})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Attempts != 3 {
		t.Fatalf("expected UpstreamError with 3 attempts, got %v", err)
	}
	if provider.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.Calls())
	}
	if rec.calls.Load() != 2 {
		t.Fatalf("expected 2 waits, got %d", rec.calls.Load())
	}
	if got := FallbackMessage(err); got != "Gemini is busy. Please try again in a moment." {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestStreamDoesNotRetryOtherErrors(t *testing.T) {
	authErr := errors.New("401 API key not valid")
	provider := NewMockProvider(
		MockTurn{Err: authErr},
		MockTurn{Fragments: []string{"never"}},
	)
	svc, rec := newTestService(provider)

	_, err := generate(svc, Request{Prompt: "hi"})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected wrapped auth error, got %v", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Fatal("non-transient failure must not report exhausted retries")
	}
	if provider.Calls() != 1 {
		t.Fatalf("expected 1 attempt, got %d", provider.Calls())
	}
	if rec.calls.Load() != 0 {
		t.Fatalf("expected no wait, got %d", rec.calls.Load())
	}
}

func TestStreamResetsPartialOutputBeforeRetry(t *testing.T) {
	provider := NewMockProvider(
		MockTurn{Fragments: []string{"Hel", "lo th"}, Err: overload()},
		MockTurn{Fragments: []string{"Hello ", "there"}},
	)
	svc, _ := newTestService(provider)

	stream, err := svc.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	defer stream.Close()

	var types []EventType
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv err: %v", err)
		}
		types = append(types, event.Type)
	}

	want := []EventType{EventDelta, EventDelta, EventReset, EventRetry, EventDelta, EventDelta, EventDone}
	if len(types) != len(want) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d: got %s want %s (all: %v)", i, types[i], want[i], types)
		}
	}
}

func TestCollectDropsFailedAttemptText(t *testing.T) {
	provider := NewMockProvider(
		MockTurn{Fragments: []string{"partial "}, Err: overload()},
		MockTurn{Fragments: []string{"complete ", "answer"}},
	)
	svc, _ := newTestService(provider)

	reply, err := generate(svc, Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if reply != "complete answer" {
		t.Fatalf("expected only the successful attempt, got %q", reply)
	}
}

func TestNoResetWhenNothingWasForwarded(t *testing.T) {
	provider := NewMockProvider(
		MockTurn{Err: overload()},
		MockTurn{Fragments: []string{"ok"}},
	)
	svc, _ := newTestService(provider)

	stream, err := svc.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			t.Fatalf("Recv err: %v", err)
		}
		if event.Type == EventReset {
			t.Fatal("unexpected reset without forwarded fragments")
		}
	}
}

func TestStreamSkipsEmptyFragments(t *testing.T) {
	provider := NewMockProvider(MockTurn{Fragments: []string{"", "a", "", "b"}})
	svc, _ := newTestService(provider)

	reply, err := generate(svc, Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if reply != "ab" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestStreamRejectsEmptyRequest(t *testing.T) {
	svc, _ := newTestService(NewMockProvider())
	if _, err := svc.Stream(context.Background(), Request{}); !errors.Is(err, ErrEmptyRequest) {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
}

func TestRetrySleepHonorsCancellation(t *testing.T) {
	provider := NewMockProvider(MockTurn{Err: overload()}, MockTurn{Fragments: []string{"late"}})
	svc := NewService(provider, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.Stream(ctx, Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}

	for {
		event, err := stream.Recv()
		if err != nil {
			t.Fatalf("unexpected error before retry: %v", err)
		}
		if event.Type == EventRetry {
			break
		}
	}
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := Collect(stream)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry wait ignored cancellation")
	}
	if provider.Calls() != 1 {
		t.Fatalf("expected no second attempt, got %d calls", provider.Calls())
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep err: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
