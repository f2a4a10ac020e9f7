package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitRunsTasks(t *testing.T) {
	p := New(4)
	defer p.Stop(true)

	var count int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&count, 1)
		})
	}
	wg.Wait()
	assert.Equal(t, int64(50), atomic.LoadInt64(&count))
}

func TestDefaultWorkers(t *testing.T) {
	p := New(0)
	defer p.Stop(true)
	assert.Equal(t, DefaultWorkers, p.workers)
}

func TestPanicRecovery(t *testing.T) {
	p := New(2)
	defer p.Stop(true)

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	var ran bool
	var wg2 sync.WaitGroup
	wg2.Add(1)
	p.Submit(func() {
		defer wg2.Done()
		ran = true
	})
	wg2.Wait()
	assert.True(t, ran, "pool should keep serving tasks after a panic")
}

func TestStopDrainCompletesQueuedTasks(t *testing.T) {
	p := New(1)

	var count int64
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&count, 1)
		})
	}
	p.Stop(true)
	assert.Equal(t, int64(10), atomic.LoadInt64(&count))
}

func TestStopForceAbandonsQueue(t *testing.T) {
	p := New(1)

	block := make(chan struct{})
	p.Submit(func() { <-block })

	for i := 0; i < 20; i++ {
		p.Submit(func() {})
	}

	done := make(chan struct{})
	go func() {
		p.Stop(false)
		close(done)
	}()

	close(block)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forced stop did not complete promptly")
	}
}

func TestSubmitAfterStopIsNoOp(t *testing.T) {
	p := New(1)
	p.Stop(true)
	assert.NotPanics(t, func() {
		p.Submit(func() {})
	})
}
