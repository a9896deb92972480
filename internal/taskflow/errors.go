package taskflow

import (
	"fmt"

	"github.com/antigravity-dev/opsforge/internal/task"
)

// InvalidTransitionError is raised when a requested transition is not
// in the allowed edge set. It is a programmer error: it is always
// surfaced, never swallowed, and no audit record is emitted for it.
type InvalidTransitionError struct {
	Current task.Status
	Target  task.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("taskflow: invalid transition from %s to %s", e.Current, e.Target)
}

// RetryPreconditionError is raised by ScheduleRetry when called on a
// task that is not in the failed state.
type RetryPreconditionError struct {
	Current task.Status
}

func (e *RetryPreconditionError) Error() string {
	return fmt.Sprintf("taskflow: schedule_retry requires status=failed, got %s", e.Current)
}
