package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Sink      string         `json:"sink"`
	RunActive bool           `json:"run_active"`
	Clients   int            `json:"websocket_clients"`
	Runtime   map[string]any `json:"runtime,omitempty"`
}

// RunState is the part of RunService the health check needs
type RunState interface {
	Running() bool
	SinkName() string
}

// ClientCounter reports connected live-log clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	runs      RunState
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service. clients may be nil.
func NewHealthService(version string, runs RunState, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		runs:      runs,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Sink:      hs.runs.SinkName(),
		RunActive: hs.runs.Running(),
		Runtime: map[string]any{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
	if hs.clients != nil {
		status.Clients = hs.clients.ClientCount()
	}

	hs.logger.DebugContext(ctx, "health check",
		slog.String("status", status.Status),
		slog.Bool("run_active", status.RunActive))
	return status
}
