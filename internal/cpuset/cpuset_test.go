package cpuset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/thomasltran/cfs-kernel-core/internal/sched"
)

func TestSetTracksStartedAndBootCPU(t *testing.T) {
	sch := sched.New(sched.DefaultConfig(), nil, noopIPI{}, 4)
	set := NewSet(sch, 4)

	require.Equal(t, 0, set.BootCPU())
	require.Equal(t, 4, set.NCPU())
	require.False(t, set.Started(1))

	set.MarkStarted(1)
	require.True(t, set.Started(1))
	require.False(t, set.Started(2))
}

func TestStatsForReadsLiveSchedulerCounters(t *testing.T) {
	sch := sched.New(sched.DefaultConfig(), nil, noopIPI{}, 2)
	set := NewSet(sch, 2)

	stats := set.StatsFor(0)
	require.Equal(t, int64(0), stats.ContextSwitches)
}

// TestStatsForAreIndependentPerCPU ticks cpu 0 and leaves cpu 1 idle,
// then diffs the two snapshots structurally: nothing on cpu 1's side
// should have moved.
func TestStatsForAreIndependentPerCPU(t *testing.T) {
	sch := sched.New(sched.DefaultConfig(), nil, noopIPI{}, 2)
	set := NewSet(sch, 2)

	sch.Tick(0, 1_000_000)
	sch.Tick(0, 2_000_000)

	got0 := set.StatsFor(0)
	got1 := set.StatsFor(1)

	want1 := sched.Stats{}
	if diff := cmp.Diff(want1, got1); diff != "" {
		t.Fatalf("cpu 1 stats drifted while only cpu 0 ticked (-want +got):\n%s", diff)
	}
	if cmp.Equal(got0, got1) {
		t.Fatalf("cpu 0 and cpu 1 stats should have diverged after ticking cpu 0 only, got identical %+v", got0)
	}
}

type noopIPI struct{}

func (noopIPI) SendReschedule(targetCPU int) {}
