package userlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRemovesEntry(t *testing.T) {
	table := NewTable()

	h, err := table.Acquire(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, int64(1), h.UserID())

	h.Release()
	assert.Equal(t, 0, table.Len())

	// Повторное освобождение не должно ломать таблицу
	h.Release()
	assert.Equal(t, 0, table.Len())
}

func TestSameUserIsSerialized(t *testing.T) {
	table := NewTable()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := table.Do(context.Background(), 7, func() error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, table.Len())
}

func TestDifferentUsersRunInParallel(t *testing.T) {
	table := NewTable()

	h1, err := table.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer h1.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	h2, err := table.Acquire(ctx, 2)
	require.NoError(t, err, "another user's lock must not block")
	h2.Release()
	assert.Equal(t, 1, table.Len())
}

func TestCancelledWaitLeavesNoState(t *testing.T) {
	table := NewTable()

	h, err := table.Acquire(context.Background(), 3)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = table.Acquire(ctx, 3)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	h.Release()
	assert.Equal(t, 0, table.Len())
}

func TestAcquireWithCancelledContextAlwaysFails(t *testing.T) {
	table := NewTable()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 200; i++ {
		h, err := table.Acquire(ctx, 4)
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, h)
	}
	assert.Equal(t, 0, table.Len())
}

// Освобождение и немедленный повторный захват не должны выбрасывать
// запись из-под нового держателя.
func TestReleaseThenReacquireKeepsEntryForHolder(t *testing.T) {
	table := NewTable()

	for i := 0; i < 200; i++ {
		h1, err := table.Acquire(context.Background(), 9)
		require.NoError(t, err)

		acquired := make(chan *Handle)
		go func() {
			h2, err := table.Acquire(context.Background(), 9)
			assert.NoError(t, err)
			acquired <- h2
		}()

		h1.Release()
		h2 := <-acquired

		// Третий претендент обязан ждать h2, а не получить новую запись
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_, err = table.Acquire(ctx, 9)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)

		h2.Release()
	}
	assert.Equal(t, 0, table.Len())
}

func TestDoReleasesOnError(t *testing.T) {
	table := NewTable()
	boom := errors.New("boom")

	err := table.Do(context.Background(), 5, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, table.Len())
}
