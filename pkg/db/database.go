package db

import (
	"context"
	"time"

	"github.com/acorn-io/dns-converge/pkg/model"
)

// Database is the durable store behind the convergence monitor and api-server.
type Database interface {
	VMIP(ctx context.Context) (string, error)
	SetVMIP(ctx context.Context, ip string) error
	SaveReport(ctx context.Context, kind string, resp *model.ConvergenceResponse) error
	LatestReport(ctx context.Context, kind string) (*model.ConvergenceResponse, time.Time, error)
	PurgeReports(maxAge time.Duration) (int64, error)
}
