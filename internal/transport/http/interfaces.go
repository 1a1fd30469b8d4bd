package http

import (
	"context"

	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/internal/services"
)

// RunService is what the runs handler needs from services.RunService
type RunService interface {
	Run(ctx context.Context, in services.RunInput) (*operations.RunReport, error)
	LastReport() (*operations.RunReport, error)
	PingSink(ctx context.Context) error
	SinkName() string
}

// HealthService is what the health handler needs from services.HealthService
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
}
