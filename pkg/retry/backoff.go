package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64, maxElapsed time.Duration) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = maxElapsed
	return exp
}

// ConstantBackoff waits the same delay between every attempt.
func ConstantBackoff(delay time.Duration) backoff.BackOff {
	return backoff.NewConstantBackOff(delay)
}
