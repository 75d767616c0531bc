package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/thomasltran/cfs-kernel-core/internal/blockdev"
	"github.com/thomasltran/cfs-kernel-core/internal/config"
	"github.com/thomasltran/cfs-kernel-core/internal/kernel"
)

func main() {
	confPath := flag.String("conf", "", "path to a TOML config file (defaults used if absent)")
	diskPath := flag.String("disk", "", "path to a block device image (in-memory device used if absent)")
	diskSectors := flag.Uint("disk-sectors", 65536, "sector count for a newly created disk image")
	ncpu := flag.Int("ncpu", 0, "number of simulated CPUs (0 = detect from GOMAXPROCS/cgroup)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*confPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	var dev blockdev.Device
	if *diskPath != "" {
		fdev, err := blockdev.OpenFileDevice(*diskPath, uint32(*diskSectors))
		if err != nil {
			log.WithError(err).Fatal("failed to open disk image")
		}
		dev = fdev
	} else {
		dev = blockdev.NewMemDevice(uint32(*diskSectors))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	k, err := kernel.Boot(ctx, cfg, log, dev, *ncpu)
	if err != nil {
		log.WithError(err).Fatal("boot failed")
	}

	log.WithFields(logrus.Fields{
		"cpus":          k.Sched.NCPU(),
		"pool_workers":  cfg.ThreadPool.Workers,
		"frames":        cfg.VM.NumFrames,
		"sched_latency": cfg.Sched.LatencyMS,
	}).Info("kernel core booted")
	fmt.Fprintln(os.Stdout, "cfs-kernel-core: ready")

	<-ctx.Done()
	log.Info("shutdown signal received, draining subsystems")

	if err := k.Shutdown(); err != nil {
		log.WithError(err).Error("shutdown encountered an error")
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
