package queue

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"chat-scraper/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasks(ids ...string) []entity.Task {
	out := make([]entity.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.Task{ID: id, Text: "prompt " + id})
	}
	return out
}

func TestQueue_PopPreservesOrder(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(tasks("1", "2", "3")...))
	q.Seal()

	for _, want := range []string{"1", "2", "3"} {
		got, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, want, got.ID)
	}

	_, err := q.Pop()
	assert.ErrorIs(t, err, entity.ErrQueueEmpty)
}

func TestQueue_PushAfterSeal(t *testing.T) {
	q := New()
	q.Seal()

	err := q.Push(tasks("1")...)
	assert.ErrorIs(t, err, entity.ErrQueueSealed)
	assert.Equal(t, 0, q.Size())
}

func TestQueue_SizeAndUnfinished(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(tasks("a", "b")...))
	q.Seal()

	assert.Equal(t, 2, q.Size())
	assert.Equal(t, 2, q.Unfinished())

	_, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, 2, q.Unfinished(), "popped but not acknowledged")

	q.Done()
	assert.Equal(t, 1, q.Unfinished())
	assert.Equal(t, []entity.Task{{ID: "b", Text: "prompt b"}}, q.Remaining())
}

func TestQueue_WaitBlocksUntilAcknowledged(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(tasks("1")...))
	q.Seal()

	_, err := q.Pop()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)

	q.Done()
	assert.NoError(t, q.Wait(context.Background()))
}

func TestQueue_WaitRequiresSeal(t *testing.T) {
	q := New()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)

	q.Seal()
	assert.NoError(t, q.Wait(context.Background()))
}

func TestQueue_DoneWithoutTaskPanics(t *testing.T) {
	q := New()
	assert.Panics(t, q.Done)
}

func TestQueue_ConcurrentPopsHandOutEachTaskOnce(t *testing.T) {
	const n = 500
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "t" + strconv.Itoa(i)
	}
	q := New()
	require.NoError(t, q.Push(tasks(ids...)...))
	q.Seal()

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := q.Pop()
				if err != nil {
					return
				}
				mu.Lock()
				seen[task.ID]++
				mu.Unlock()
				q.Done()
			}
		}()
	}
	wg.Wait()

	require.NoError(t, q.Wait(context.Background()))
	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "task %s popped %d times", id, count)
	}
}
