package pinecone

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// retrier bounds an index call by the configured timeout and retries it
// while the failure looks transient.
type retrier struct {
	config *Config
	logger Logger
}

func newRetrier(config *Config, logger Logger) *retrier {
	return &retrier{config: config, logger: logger}
}

// do runs call until it succeeds, fails permanently or the budget is spent.
// The wait doubles after every failed attempt.
func (r *retrier) do(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	delay := r.config.RetryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = call(ctx); err == nil {
			if attempt > 1 {
				r.logger.Info("pinecone call recovered", "operation", operation, "attempts", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return NewTimeoutError(operation+" timed out", ctx.Err())
		}
		if !retryable(err) {
			return err
		}
		if attempt > r.config.MaxRetries {
			break
		}

		r.logger.Warn("pinecone call failed, backing off", "operation", operation, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return NewTimeoutError(operation+" timed out", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	r.logger.Error("pinecone call exhausted retries", "operation", operation, "attempts", r.config.MaxRetries+1, "error", err)
	return NewRetryError(operation+" failed after retries", err)
}

// retryable rejects caller cancellation and gRPC codes that a second
// attempt with the same request cannot fix.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var verr *VectorError
	if errors.As(err, &verr) && verr.Type == "config" {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch st.Code() {
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.PermissionDenied,
		codes.Unauthenticated, codes.FailedPrecondition, codes.OutOfRange, codes.Unimplemented:
		return false
	}
	return true
}
