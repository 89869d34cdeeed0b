package outbound

import (
	"context"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
)

// AllocationStore persists a completed run's report. Persistence is an
// optional collaborator; a run that has no store configured simply skips
// it.
type AllocationStore interface {
	// SaveRun stores the report under runID. Saving the same runID twice
	// must be idempotent.
	SaveRun(ctx context.Context, runID string, report *entity.RunReport) error
}

// ReportWriter emits a completed report to some external surface (file,
// stdout, object store). Writers receive the report unchanged and own the
// serialization format.
type ReportWriter interface {
	Write(ctx context.Context, report *entity.RunReport) error
}
