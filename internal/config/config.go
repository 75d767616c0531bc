// Package config loads the kernel core's tunables from an optional TOML
// file, falling back to spec defaults when absent or incomplete.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable knob the core subsystems expose.
type Config struct {
	Sched struct {
		LatencyMS      int64 `toml:"latency_ms"`
		MinGranularity int64 `toml:"min_granularity_ms"`
		TimerFreqHz    int   `toml:"timer_freq_hz"`
	} `toml:"sched"`

	Cache struct {
		// Slots is reported for operators, not consumed: §4.4.1 fixes the
		// cache at internal/cache.NumSlots (64) regardless of this value.
		Slots          int   `toml:"slots"`
		FlushPeriodSec int64 `toml:"flush_period_sec"`
	} `toml:"cache"`

	ThreadPool struct {
		Workers int `toml:"workers"`
	} `toml:"thread_pool"`

	VM struct {
		NumFrames   int    `toml:"num_frames"`
		SwapPath    string `toml:"swap_path"`
		SwapSectors uint32 `toml:"swap_sectors"`
	} `toml:"vm"`
}

// Default returns the spec's defaults: 20ms sched_latency, 4ms
// min_granularity, 100Hz timer, 64 cache slots, 30s flush period, a
// 4-worker thread pool, 256 VM frames and 8192 swap sectors.
func Default() Config {
	var c Config
	c.Sched.LatencyMS = 20
	c.Sched.MinGranularity = 4
	c.Sched.TimerFreqHz = 100
	c.Cache.Slots = 64
	c.Cache.FlushPeriodSec = 30
	c.ThreadPool.Workers = 4
	c.VM.NumFrames = 256
	c.VM.SwapSectors = 8192
	return c
}

// Load reads path as TOML over Default(), so a partial file only
// overrides the keys it sets. A missing file is not an error — it is
// read as "use defaults".
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, err
	}
	return c, nil
}
