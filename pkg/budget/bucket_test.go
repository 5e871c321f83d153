package budget

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryDebit(t *testing.T) {
	b := New(100)
	assert.True(t, b.TryDebit(60))
	assert.False(t, b.TryDebit(60), "insufficient balance must not be debited")
	assert.True(t, b.TryDebit(40))
	assert.Equal(t, 0.0, b.Available())
}

func TestDebitNeverGoesNegative(t *testing.T) {
	b := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.TryDebit(30)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, b.Available(), 0.0)
	// 33 debits of 30 fit in 1000; the rest must have been refused.
	assert.InDelta(t, 1000-33*30, b.Available(), 1e-9)
}

func TestRefillCapsAtMax(t *testing.T) {
	b := New(60) // 1 token per second
	b.TryDebit(2)
	b.refill()
	assert.InDelta(t, 59, b.Available(), 1e-9)
	b.refill()
	b.refill()
	assert.InDelta(t, 60, b.Available(), 1e-9, "refill must not exceed the cap")
}

func TestCreditCapsAtMax(t *testing.T) {
	b := New(100)
	b.TryDebit(10)
	b.Credit(50)
	assert.InDelta(t, 100, b.Available(), 1e-9)
	b.Credit(-5) // no-op
	assert.InDelta(t, 100, b.Available(), 1e-9)
}
