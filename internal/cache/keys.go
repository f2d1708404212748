package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProjectSummaryKey is the cache key for a project's dashboard summary.
func ProjectSummaryKey(companyID, projectID uuid.UUID) string {
	return fmt.Sprintf("company:%s:project:%s:summary", companyID, projectID)
}

// ScheduleFeedKey is the cache key for a project's Gantt schedule feed.
func ScheduleFeedKey(companyID, projectID uuid.UUID) string {
	return fmt.Sprintf("company:%s:project:%s:schedule", companyID, projectID)
}

// InvalidateProject drops all cached views derived from a project. Called
// after any write that changes the project or its phases.
func InvalidateProject(ctx context.Context, c Cache, companyID, projectID uuid.UUID) error {
	if err := c.Delete(ctx, ProjectSummaryKey(companyID, projectID)); err != nil {
		return err
	}
	return c.Delete(ctx, ScheduleFeedKey(companyID, projectID))
}
