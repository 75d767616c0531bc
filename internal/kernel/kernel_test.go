package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
	"github.com/thomasltran/cfs-kernel-core/internal/config"
	"github.com/thomasltran/cfs-kernel-core/internal/threadpool"
)

func TestBootWiresEverySubsystem(t *testing.T) {
	cfg := config.Default()
	cfg.VM.NumFrames = 8
	cfg.VM.SwapSectors = 512
	cfg.ThreadPool.Workers = 2

	dev := blockdev.NewMemDevice(4096)
	k, err := Boot(context.Background(), cfg, nil, dev, 2)
	require.NoError(t, err)

	require.Equal(t, 2, k.Sched.NCPU())
	require.True(t, k.CPUs.Started(0))
	require.True(t, k.CPUs.Started(1))

	ino, err := k.Inodes.Create(false)
	require.NoError(t, err)
	_, err = ino.WriteAt(0, []byte("hello kernel"))
	require.NoError(t, err)

	buf := make([]byte, len("hello kernel"))
	_, err = ino.ReadAt(0, buf)
	require.NoError(t, err)
	require.Equal(t, "hello kernel", string(buf))

	fut, err := k.Pool.Submit(context.Background(), func(ctx context.Context, pool *threadpool.Pool, args interface{}) interface{} {
		return args.(int) + 1
	}, 41)
	require.NoError(t, err)
	require.Equal(t, 42, k.Pool.Get(context.Background(), fut))

	require.NoError(t, k.Shutdown())
}
