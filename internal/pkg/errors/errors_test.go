package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "message only",
			err:  New(ErrCodeInvalidArgument, "unknown direction"),
			want: "unknown direction",
		},
		{
			name: "with resource and cause",
			err:  ProviderAPIError("rds", "main-db", fmt.Errorf("access denied")),
			want: "failed to communicate with rds API [main-db]: access denied",
		},
		{
			name: "timeout",
			err:  Timeout("i-123", "running", 40),
			want: `timed out waiting for "running" after 40 attempts [i-123]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	cause := fmt.Errorf("InvalidDBInstanceState")
	wrapped := fmt.Errorf("stage start-databases: %w", IdempotentState("db-1", cause))

	if got := CodeOf(wrapped); got != ErrCodeIdempotentState {
		t.Errorf("CodeOf() = %q, want %q", got, ErrCodeIdempotentState)
	}
	if !IsIdempotentState(wrapped) {
		t.Error("IsIdempotentState() = false, want true")
	}
	if IsTimeout(wrapped) {
		t.Error("IsTimeout() = true, want false")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is() did not reach the internal error")
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestResourceOf(t *testing.T) {
	inner := ProviderAPIError("ecs", "cluster/svc", fmt.Errorf("throttled"))
	outer := Wrap(inner, ErrCodeInternal, "stage failed")

	if got := ResourceOf(outer); got != "cluster/svc" {
		t.Errorf("ResourceOf() = %q, want %q", got, "cluster/svc")
	}

	joined := errors.Join(Timeout("a", "stable", 3), Timeout("b", "stable", 3))
	if got := ResourceOf(joined); got != "a" {
		t.Errorf("ResourceOf(joined) = %q, want %q", got, "a")
	}
}
