package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for request stats, written by the health marker middleware.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

// StatKeys are the keys cleared by a stats reset.
var StatKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Dependencies names the optional collaborators checked besides Redis.
type Dependencies struct {
	Database Pinger
	Broker   Pinger
}

const pingTimeout = 2 * time.Second

func ping(ctx context.Context, p Pinger) DepStatus {
	if p == nil {
		return DepStatus{Status: "disconnected"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return DepStatus{Status: "error"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}

// CollectHealth gathers dependency status and the request stats kept in Redis.
// The service is "ok" when the database and Redis answer; the broker is informational.
func CollectHealth(ctx context.Context, rdb *redis.Client, deps Dependencies) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}
	result.Dependencies["database"] = ping(ctx, deps.Database)
	if deps.Broker != nil {
		result.Dependencies["broker"] = ping(ctx, deps.Broker)
	}

	stats := TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	startTimeMs := time.Now().UnixMilli()
	var redisStatus DepStatus
	if rdb == nil {
		redisStatus = DepStatus{Status: "disconnected"}
	} else {
		redisStatus = ping(ctx, PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }))
	}
	if redisStatus.Status == "connected" {
		vals, _ := rdb.MGet(ctx, KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq).Result()
		get := func(i int) string {
			if i < len(vals) {
				if s, ok := vals[i].(string); ok {
					return s
				}
			}
			return ""
		}

		if t, err := strconv.ParseInt(get(4), 10, 64); err == nil {
			startTimeMs = t
		} else {
			rdb.SetNX(ctx, KeyStartTime, startTimeMs, 0)
		}
		stats.TotalRequests, _ = strconv.Atoi(get(0))
		stats.FailedCount, _ = strconv.Atoi(get(1))
		stats.SuccessCount = stats.TotalRequests - stats.FailedCount
		if stats.TotalRequests > 0 {
			stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
		}
		timeSum, _ := strconv.ParseFloat(get(2), 64)
		countSum, _ := strconv.Atoi(get(3))
		if countSum > 0 {
			stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
		}
		if raw := get(5); raw != "" {
			var lastReq map[string]interface{}
			if json.Unmarshal([]byte(raw), &lastReq) == nil {
				stats.LastRequest = lastReq
			}
		}
	}
	result.Dependencies["redis"] = redisStatus
	result.Traffic = stats

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if result.Dependencies["database"].Status == "connected" && redisStatus.Status == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}
