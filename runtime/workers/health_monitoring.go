package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// StatsProvider returns the current per-owner counters (actions, messages,
// files, registered participants) for the health log line.
type StatsProvider func() map[string]any

// HealthMonitoringWorker periodically logs process self-stats (CPU, RSS,
// status) together with the owners' counters. Observability only; it never
// touches the owners' state beyond the read-only provider.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	stats          StatsProvider
}

func NewHealthMonitoringWorker(log *slog.Logger, metricInterval time.Duration, stats StatsProvider) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, metricInterval: metricInterval, stats: stats}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			args := []any{"cpu_percent", cpu, "ram_bytes", rss, "status", status}
			for k, v := range w.stats() {
				args = append(args, k, v)
			}
			w.log.Info("Health", args...)
		}
	}
}

// selfStats retrieves technical metrics (memory, CPU, OS status) for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
