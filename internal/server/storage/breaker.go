package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// BreakerStore guards a BlobStore with a circuit breaker that trips after
// consecutive failures and retries the backend on an exponential schedule.
type BreakerStore struct {
	next    BlobStore
	breaker *circuit.Breaker
}

// NewBreakerStore wraps next. threshold is the number of consecutive
// failures that open the circuit.
func NewBreakerStore(next BlobStore, threshold int64) *BreakerStore {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 5 * time.Second
	expBackoff.MaxInterval = 2 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	return &BreakerStore{
		next: next,
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    expBackoff,
			ShouldTrip: circuit.ThresholdTripFunc(threshold),
		}),
	}
}

func (b *BreakerStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if !b.breaker.Ready() {
		return "", fmt.Errorf("put %s: %w", key, ErrUnavailable)
	}

	var ref string
	err := b.breaker.Call(func() error {
		var putErr error
		ref, putErr = b.next.Put(ctx, key, data, contentType)
		return putErr
	}, 0)
	if err != nil {
		return "", err
	}
	return ref, nil
}

// Tripped reports whether the circuit is currently open.
func (b *BreakerStore) Tripped() bool {
	return b.breaker.Tripped()
}
