package indexer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestWithRetryRecovers(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		return fmt.Errorf("down")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Fatalf("error should count attempts: %v", err)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 5, time.Minute, func(context.Context) error {
		return fmt.Errorf("down")
	})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
