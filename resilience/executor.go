package resilience

import "context"

// Policy is the declarative form of an Executor, as read from configuration.
// Nil sections are disabled.
type Policy struct {
	Retry     RetryConfig           `yaml:"retry"`
	Circuit   *CircuitBreakerConfig `yaml:"circuit"`
	RateLimit *RateLimiterConfig    `yaml:"rate_limit"`
}

// Executor composes the configured patterns around one operation.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	rateLimiter    *RateLimiter
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor. With no options it simply
// runs the operation.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewExecutorFromPolicy builds an Executor from a Policy.
func NewExecutorFromPolicy(p Policy) *Executor {
	opts := []ExecutorOption{WithRetry(NewRetry(p.Retry))}
	if p.Circuit != nil {
		opts = append(opts, WithCircuitBreaker(NewCircuitBreaker(*p.Circuit)))
	}
	if p.RateLimit != nil {
		opts = append(opts, WithRateLimiter(NewRateLimiter(*p.RateLimit)))
	}
	return NewExecutor(opts...)
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs op through the configured patterns.
//
// Each attempt passes the circuit breaker and then the rate limiter, so every
// real upstream call is both gated and counted; retry wraps the whole chain.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := op

	if e.rateLimiter != nil {
		inner := attempt
		attempt = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := attempt
		attempt = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		return e.retry.Execute(ctx, attempt)
	}
	return attempt(ctx)
}
