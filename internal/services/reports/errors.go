package reports

import (
	"errors"
	"fmt"

	"github.com/ternarybob/roomathon/internal/interfaces"
)

var (
	// ErrNotFound matches any NotFoundError
	ErrNotFound = errors.New("inspection not found")
	// ErrPublish matches any PublishError
	ErrPublish = errors.New("report publish failed")
)

// NotFoundError is returned when the inspection identifier does not resolve.
// Nothing has been written when it is returned.
type NotFoundError struct {
	InspectionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("inspection %s not found", e.InspectionID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == interfaces.ErrNotFound
}

// PublishError means the report could not be rendered, stored or recorded.
// No notification is sent after it.
type PublishError struct {
	InspectionID string
	Stage        string // "render" or "publish"
	Err          error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to %s report for inspection %s: %v", e.Stage, e.InspectionID, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

func (e *PublishError) Is(target error) bool {
	return target == ErrPublish
}
