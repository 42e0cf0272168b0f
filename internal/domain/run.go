package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run identifies one execution of the fetch or report command. The ID is
// attached to log lines and published messages.
type Run struct {
	ID        string
	StartedAt time.Time
}

// NewRun starts a run with a random ID at the package clock's current time.
func NewRun() Run {
	return Run{ID: uuid.NewString(), StartedAt: clock.Now().UTC()}
}
