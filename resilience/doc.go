// Package resilience provides the caller-side policy applied around upstream
// fetches: bounded retry with backoff, a circuit breaker, and a token-bucket
// rate limiter, composed by an Executor.
//
// The upstream client itself never retries. The response cache runs each
// refresh through an Executor, inside its single-flight section, so one
// logical fetch is retried at most once per cache miss no matter how many
// callers are waiting on it.
//
//	exec := resilience.NewExecutorFromPolicy(resilience.Policy{
//	    Retry: resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond},
//	    Circuit: &resilience.CircuitBreakerConfig{MaxFailures: 5, ResetTimeout: time.Minute},
//	})
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    payload, err = client.Fetch(ctx, upstream.Works)
//	    return err
//	})
package resilience
