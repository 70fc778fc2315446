// Command journal-bench is a load generator for the metadata journal:
// it opens a device, fires a configurable rate of LogMetadata calls,
// and reports write, flush, and drop counts on exit.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	journal "github.com/behrlich/mjournal"
	"github.com/behrlich/mjournal/internal/logging"
)

func main() {
	var (
		device  = pflag.StringP("device", "d", "/tmp/journal-pipe", "path to the journal backing device")
		rate    = pflag.IntP("rate", "r", 1000, "target LogMetadata calls per second")
		sync    = pflag.Bool("sync", false, "use synchronous durability instead of async")
		verbose = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	if *rate <= 0 {
		fmt.Fprintf(os.Stderr, "journal-bench: --rate must be positive, got %d\n", *rate)
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	core, err := journal.Init(journal.Config{DevicePath: *device, Logger: logger})
	if err != nil {
		logger.Error("failed to initialize journal", "error", err)
		os.Exit(1)
	}

	durability := journal.Async
	if *sync {
		durability = journal.Sync
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	var ino uint32 = 1
	logger.Info("starting load", "device", *device, "rate", *rate, "sync", *sync)

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case <-ticker.C:
			ino++
			node := &journal.Node{Ino: ino, Mode: 0o100644, Size: 0, Nlink: 1}
			info := &journal.Info{Action: "create", Name: fmt.Sprintf("file-%d", ino), ParentIno: 1}
			if err := core.LogMetadata(node, info, durability); err != nil {
				logger.Warnf("LogMetadata: %v", err)
			}
		}
	}

	logger.Info("shutting down")
	if err := core.Shutdown(); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	snap := core.Metrics().Snapshot()
	fmt.Printf("sync_writes=%d async_writes=%d enqueued=%d dropped=%d flush_batches=%d flushed_events=%d\n",
		snap.SyncWrites, snap.AsyncWrites, snap.Enqueued, snap.Dropped, snap.FlushBatches, snap.FlushedEvents)
}
