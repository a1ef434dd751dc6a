package server

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// RunSystemStatsLoop periodically samples process CPU and memory
// utilization via gopsutil and publishes them as both a structured log
// line and Prometheus gauges (A5). It returns when ctx is cancelled.
func RunSystemStatsLoop(ctx context.Context, interval time.Duration, metrics *Metrics, logger zerolog.Logger) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cpuPercent, err := proc.PercentWithContext(ctx, 0)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to sample process CPU usage")
				continue
			}
			numCPU, err := cpu.CountsWithContext(ctx, true)
			if err != nil || numCPU == 0 {
				numCPU = 1
			}
			normalizedCPU := cpuPercent / float64(numCPU)

			memPercent, err := proc.MemoryPercentWithContext(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to sample process memory usage")
				continue
			}

			metrics.CPUPercent.Set(normalizedCPU)
			metrics.MemoryPercent.Set(float64(memPercent))

			logger.Debug().
				Float64("cpu_percent", normalizedCPU).
				Float64("memory_percent", float64(memPercent)).
				Msg("system stats sample")
		}
	}
}
