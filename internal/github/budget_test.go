package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestBudget(t *testing.T) {
	fixedNow := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	newBudget := func(remaining int, reset time.Time) *RequestBudget {
		b := NewRequestBudget()
		b.now = func() time.Time { return fixedNow }
		b.mu.Lock()
		b.remaining = remaining
		b.reset = reset
		b.mu.Unlock()
		return b
	}

	shortCtx := func(t *testing.T) context.Context {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		t.Cleanup(cancel)
		return ctx
	}

	t.Run("UpdateFromResponse sets remaining and reset", func(t *testing.T) {
		b := newBudget(5000, fixedNow.Add(time.Hour))

		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("X-RateLimit-Remaining", "10")
		resp.Header.Set("X-RateLimit-Reset", "1700000000")
		b.UpdateFromResponse(resp)

		if rem := b.Remaining(); rem != 10 {
			t.Fatalf("Expected 10 remaining, got %d", rem)
		}
		b.mu.Lock()
		reset := b.reset
		b.mu.Unlock()
		if !reset.Equal(time.Unix(1700000000, 0)) {
			t.Fatalf("Expected reset %v, got %v", time.Unix(1700000000, 0), reset)
		}
	})

	t.Run("UpdateFromResponse ignores invalid headers", func(t *testing.T) {
		b := newBudget(7, time.Unix(123, 0))

		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("X-RateLimit-Remaining", "nope")
		resp.Header.Set("X-RateLimit-Reset", "not-a-time")
		b.UpdateFromResponse(resp)

		if rem := b.Remaining(); rem != 7 {
			t.Fatalf("Expected remaining to stay 7, got %d", rem)
		}
	})

	t.Run("Retry-After blocks until cooldown", func(t *testing.T) {
		b := newBudget(5000, fixedNow.Add(-time.Hour))

		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("Retry-After", "60")
		b.UpdateFromResponse(resp)

		if err := b.Acquire(shortCtx(t), 1); err == nil {
			t.Fatalf("Expected context deadline exceeded during cooldown")
		}
	})

	t.Run("Exhausted before reset blocks", func(t *testing.T) {
		b := newBudget(0, fixedNow.Add(time.Hour))
		if err := b.Acquire(shortCtx(t), 1); err == nil {
			t.Fatalf("Expected context deadline exceeded")
		}
	})

	t.Run("After reset allows exactly one probe", func(t *testing.T) {
		b := newBudget(0, fixedNow.Add(-time.Second))

		if err := b.Acquire(context.Background(), 1); err != nil {
			t.Fatalf("Expected probe Acquire to succeed, got error: %v", err)
		}
		if err := b.Acquire(shortCtx(t), 1); err == nil {
			t.Fatalf("Expected second acquire to block until context deadline")
		}
	})

	t.Run("UpdateFromResponse wakes waiters", func(t *testing.T) {
		b := newBudget(0, fixedNow.Add(time.Hour))

		errCh := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			errCh <- b.Acquire(ctx, 1)
		}()

		time.Sleep(10 * time.Millisecond)
		resp := &http.Response{Header: make(http.Header)}
		resp.Header.Set("X-RateLimit-Remaining", "1")
		resp.Header.Set("X-RateLimit-Reset", "1700000000")
		b.UpdateFromResponse(resp)

		if err := <-errCh; err != nil {
			t.Fatalf("Expected Acquire to succeed after update, got %v", err)
		}
	})

	t.Run("Invalid inputs fail fast", func(t *testing.T) {
		b := NewRequestBudget()
		var nilCtx context.Context
		if err := b.Acquire(nilCtx, 1); err == nil {
			t.Fatalf("Expected error for nil ctx")
		}
		if err := b.Acquire(context.Background(), 0); err == nil {
			t.Fatalf("Expected error for n=0")
		}
	})
}

func TestRequestBudget_Transport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "41")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(server.Close)

	b := NewRequestBudget()
	c, err := NewClient(context.Background(), "", WithBudget(b), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	req, err := c.Client.NewRequest("GET", "rate_limit", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if _, err := c.Client.Do(context.Background(), req, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if rem := b.Remaining(); rem != 41 {
		t.Fatalf("Expected budget refreshed from headers to 41, got %d", rem)
	}
}
