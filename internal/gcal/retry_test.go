package gcal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"server error", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, false},
		{"wrapped api error", &APIError{Op: "create", Err: &googleapi.Error{Code: 500}}, true},
		{"network timeout", &net.DNSError{IsTimeout: true}, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryPermanentFailure(t *testing.T) {
	calls := 0
	wantErr := &googleapi.Error{Code: http.StatusForbidden}

	err := withRetry(context.Background(), func() error {
		calls++
		return wantErr
	})

	if calls != 1 {
		t.Errorf("op called %d times, want 1 for a permanent error", calls)
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusForbidden {
		t.Errorf("withRetry returned %v, want the 403", err)
	}
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("retries sleep between attempts")
	}

	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &googleapi.Error{Code: http.StatusTooManyRequests}
		}
		return nil
	})

	if err != nil {
		t.Errorf("withRetry returned %v, want nil", err)
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
}
