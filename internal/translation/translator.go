package translation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// AdapterOptions tune a Translator
type AdapterOptions struct {
	// Timeout bounds one backend call. Zero means no extra deadline.
	Timeout time.Duration
	// BreakerFailures consecutive transient failures open the breaker
	BreakerFailures uint32
	// BreakerCooldown is how long an open breaker rejects calls
	BreakerCooldown time.Duration
	Logger          logrus.FieldLogger
}

// DefaultAdapterOptions returns the options used by the CLI
func DefaultAdapterOptions() AdapterOptions {
	return AdapterOptions{
		Timeout:         2 * time.Minute,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Translator turns a batch of texts into the same number of translations
// using a Backend. It is safe for concurrent use.
type Translator struct {
	backend Backend
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewTranslator wraps backend with a timeout and a circuit breaker
func NewTranslator(backend Backend, opts AdapterOptions) *Translator {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:        backend.Name(),
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// only outages count against the backend, bad input does not
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err) || IsShape(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"backend": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &Translator{
		backend: backend,
		breaker: gobreaker.NewCircuitBreaker(settings),
		timeout: opts.Timeout,
		log:     log,
	}
}

// Model returns the backend's model name
func (t *Translator) Model() string { return t.backend.Model() }

// Backend returns the wrapped backend
func (t *Translator) Backend() Backend { return t.backend }

// TranslateBatch sends texts in one request. On success the result has
// exactly len(texts) entries in input order; a reply of any other length is
// a *ResponseShapeError and nothing is returned.
func (t *Translator) TranslateBatch(ctx context.Context, texts []string, pair LanguagePair) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prompt, err := BuildPrompt(texts, pair)
	if err != nil {
		return nil, &AdapterError{Kind: Permanent, Provider: t.backend.Name(), Err: err}
	}

	callCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := t.breaker.Execute(func() (interface{}, error) {
		return t.backend.Complete(callCtx, prompt)
	})
	if err != nil {
		return nil, t.wrap(ctx, err)
	}

	segments, err := ParseReply(out.(string), len(texts))
	if err != nil {
		t.log.WithFields(logrus.Fields{
			"backend": t.backend.Name(),
			"texts":   len(texts),
		}).Debugf("rejected reply: %v", err)
		return nil, err
	}

	t.log.WithFields(logrus.Fields{
		"backend":  t.backend.Name(),
		"model":    t.backend.Model(),
		"texts":    len(texts),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("batch translated")
	return segments, nil
}

func (t *Translator) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &AdapterError{Kind: Transient, Provider: t.backend.Name(), Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AdapterError{Kind: Transient, Provider: t.backend.Name(), Err: fmt.Errorf("timed out after %s: %w", t.timeout, err)}
	}
	var ae *AdapterError
	var shape *ResponseShapeError
	if errors.As(err, &ae) || errors.As(err, &shape) {
		return err
	}
	return &AdapterError{Kind: Transient, Provider: t.backend.Name(), Err: err}
}
