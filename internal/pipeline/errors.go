package pipeline

import (
	"fmt"
	"time"
)

// InvalidRangeError rejects a request whose start date falls after its end
// date. It is raised before any fetch is attempted.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s",
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// FetchError records the failure of a single series fetch. Failures are
// collected per series and never abort sibling fetches; callers surface them
// alongside whatever succeeded.
type FetchError struct {
	SourceID string
	Label    string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Label, e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DuplicateColumnError is raised when two input series share a display name
// at alignment time. Silent overwrite would make the output depend on input
// order, so the collision is fatal to the align step.
type DuplicateColumnError struct {
	Name string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column name %q in alignment input", e.Name)
}

// ZeroVarianceError identifies a column whose non-null values are constant
// and therefore cannot be z-scored. It is reported per column; sibling
// columns still normalize.
type ZeroVarianceError struct {
	Column string
}

func (e *ZeroVarianceError) Error() string {
	return fmt.Sprintf("column %q has zero variance, cannot normalize", e.Column)
}
