package cluster

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoReachableNode is wrapped by every CandidatesError.
var ErrNoReachableNode = errors.New("no reachable node")

// CandidatesError reports that every candidate node of a passthrough call failed.
type CandidatesError struct {
	Operation string
	Attempts  []string
}

func (e *CandidatesError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no candidate nodes", e.Operation)
	}
	return fmt.Sprintf("%s: all %d candidate nodes failed: %s", e.Operation, len(e.Attempts), strings.Join(e.Attempts, "; "))
}

func (e *CandidatesError) Unwrap() error {
	return ErrNoReachableNode
}

// UnavailableError reports that a single requested resource could not be
// reached at all. Reason is safe to show to callers.
type UnavailableError struct {
	Resource string
	Reason   string
	Errors   []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Resource, e.Reason)
}
