package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(Settings{Name: "redis", MaxFailures: 2, Timeout: time.Second})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.Equal(t, boom, cb.Execute(fail))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, boom, cb.Execute(fail))
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	// a failed probe reopens immediately
	now = now.Add(2 * time.Second)
	assert.Equal(t, boom, cb.Execute(fail))
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
