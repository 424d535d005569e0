package httpapi

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/soundstack/soundstack/internal/httputil"
)

// Version is reported by the health endpoint; set at build time.
var Version = "dev"

type processStats struct {
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
	Process *processStats     `json:"process,omitempty"`
}

// health reports dependency checks and process resource usage. Any failing
// check turns the status to degraded and the response to 503.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Checks:  make(map[string]string, len(h.deps.Checks)),
		Process: readProcessStats(ctx),
	}
	status := http.StatusOK
	for name, check := range h.deps.Checks {
		if err := check.Health(ctx); err != nil {
			h.deps.Log.WithContext(r.Context()).WithError(err).Warnf("health check %s failed", name)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

func readProcessStats(ctx context.Context) *processStats {
	stats := &processStats{Goroutines: runtime.NumGoroutine()}
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return stats
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	}
	return stats
}
