// Package health reports process and dependency status for the ops
// dashboard and load balancers.
package health

import (
	"context"
	"runtime"
	"time"
)

// DBPinger is optional for the health check. If nil, the database is
// reported as disconnected.
type DBPinger interface {
	Ping() error
}

// StoragePinger checks the blob store. If nil, storage is reported as
// disconnected.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

var startTime = time.Now()

// CollectResult is the /health/json payload.
type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64  `json:"uptimeSeconds"`
	HeapUsed      uint64 `json:"heapUsed"`
	NumGoroutine  int    `json:"numGoroutine"`
	Platform      string `json:"platform"`
	GoVersion     string `json:"goVersion"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// CollectHealth gathers runtime data and pings the database and the
// blob store. Overall status degrades when either dependency errors.
func CollectHealth(ctx context.Context, db DBPinger, store StoragePinger) CollectResult {
	result := CollectResult{
		Status:       "ok",
		Dependencies: make(map[string]DepStatus),
	}

	result.Dependencies["database"] = ping(func() error {
		if db == nil {
			return errDisconnected
		}
		return db.Ping()
	})
	result.Dependencies["storage"] = ping(func() error {
		if store == nil {
			return errDisconnected
		}
		return store.Ping(ctx)
	})

	for _, dep := range result.Dependencies {
		if dep.Status != "connected" {
			result.Status = "degraded"
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	result.Runtime = RuntimeInfo{
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		HeapUsed:      mem.HeapAlloc,
		NumGoroutine:  runtime.NumGoroutine(),
		Platform:      runtime.GOOS,
		GoVersion:     runtime.Version(),
	}

	return result
}

type disconnectedError struct{}

func (disconnectedError) Error() string { return "disconnected" }

var errDisconnected = disconnectedError{}

func ping(fn func() error) DepStatus {
	start := time.Now()
	if err := fn(); err != nil {
		if err == errDisconnected {
			return DepStatus{Status: "disconnected"}
		}
		return DepStatus{Status: "error"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}
