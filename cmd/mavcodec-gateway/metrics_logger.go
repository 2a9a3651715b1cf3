package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/go-mavcodec/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_parsed", snap.FramesParsed,
					"checksum_failures", snap.ChecksumFailures,
					"sequence_gaps", snap.SequenceGaps,
					"resync_bytes", snap.ResyncBytes,
					"frames_built", snap.FramesBuilt,
					"schema_loads", snap.SchemaLoads,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
