package threadpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitGetRunsTask(t *testing.T) {
	p := New(context.Background(), nil, 4)
	defer p.Shutdown()

	fut, err := p.Submit(context.Background(), func(ctx context.Context, pool *Pool, args interface{}) interface{} {
		return args.(int) * 2
	}, 21)
	require.NoError(t, err)

	result := p.Get(context.Background(), fut)
	require.Equal(t, 42, result)
	require.Equal(t, Completed, fut.Status())
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := New(context.Background(), nil, 2)
	require.NoError(t, p.Shutdown())

	_, err := p.Submit(context.Background(), func(ctx context.Context, pool *Pool, args interface{}) interface{} {
		return nil
	}, nil)
	require.ErrorIs(t, err, ErrPoolShutdown)
}

// sumArgs carries the slice and granularity for the fork/join sum below.
type sumArgs struct {
	nums        []int
	granularity int
}

func parallelSum(ctx context.Context, pool *Pool, rawArgs interface{}) interface{} {
	args := rawArgs.(sumArgs)
	if len(args.nums) <= args.granularity {
		sum := 0
		for _, v := range args.nums {
			sum += v
		}
		return sum
	}

	mid := len(args.nums) / 2
	leftFut, err := pool.Submit(ctx, parallelSum, sumArgs{nums: args.nums[:mid], granularity: args.granularity})
	if err != nil {
		panic(err)
	}
	rightResult := parallelSum(ctx, pool, sumArgs{nums: args.nums[mid:], granularity: args.granularity})
	leftResult := pool.Get(ctx, leftFut)

	return leftResult.(int) + rightResult.(int)
}

// TestForkJoinParallelSum mirrors spec §8 scenario 6: a deep fork/join
// recursion over many workers must not deadlock even when every worker
// ends up blocked in Get waiting on a sibling.
func TestForkJoinParallelSum(t *testing.T) {
	const n = 300_000
	const granularity = 100
	const workers = 32

	nums := make([]int, n)
	want := 0
	for i := range nums {
		nums[i] = i + 1
		want += nums[i]
	}

	p := New(context.Background(), nil, workers)
	defer p.Shutdown()

	done := make(chan int, 1)
	go func() {
		fut, err := p.Submit(context.Background(), parallelSum, sumArgs{nums: nums, granularity: granularity})
		require.NoError(t, err)
		done <- p.Get(context.Background(), fut).(int)
	}()

	select {
	case got := <-done:
		require.Equal(t, want, got)
	case <-time.After(10 * time.Second):
		t.Fatal("parallel sum deadlocked")
	}
}

func TestStatsReflectSubmissions(t *testing.T) {
	p := New(context.Background(), nil, 4)
	defer p.Shutdown()

	fut, err := p.Submit(context.Background(), func(ctx context.Context, pool *Pool, args interface{}) interface{} {
		return nil
	}, nil)
	require.NoError(t, err)
	p.Get(context.Background(), fut)

	stats := p.Stats()
	require.Equal(t, int64(1), stats.Submitted)
	require.Equal(t, int64(1), stats.Completed)
	require.Equal(t, workers(p), stats.Workers)
}

func workers(p *Pool) int { return len(p.workers) }
