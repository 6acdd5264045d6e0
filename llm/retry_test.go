package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fastPolicy = RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 1.5}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, DefaultRetryPolicy.Delay(0))
	assert.Equal(t, 1500*time.Millisecond, DefaultRetryPolicy.Delay(1))
	assert.Equal(t, 2250*time.Millisecond, DefaultRetryPolicy.Delay(2))
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	attempts := 0
	got, err := Retry(context.Background(), fastPolicy, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &Error{Kind: KindConnection, Status: http.StatusBadGateway, Message: "bad gateway"}
		}
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	var retries []int
	p := fastPolicy
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }

	_, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("flaky")
	})
	assert.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []int{1, 2, 3}, retries)
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	permanent := []error{
		&Error{Kind: KindAuth, Status: http.StatusUnauthorized},
		&Error{Kind: KindUnknown, Status: http.StatusBadRequest},
		&Error{Kind: KindConnection, Status: http.StatusNotFound},
		configError("bad config"),
	}
	for _, perm := range permanent {
		attempts := 0
		_, err := Retry(context.Background(), fastPolicy, func(context.Context) (int, error) {
			attempts++
			return 0, perm
		})
		assert.Same(t, perm, err)
		assert.Equal(t, 1, attempts, perm.Error())
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	_, err := Retry(ctx, RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}, func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("transient")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
