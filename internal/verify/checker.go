package verify

import (
	"context"

	"keboola.io/project-restore/internal/apperrors"
)

// Level indicates the severity of a check.
type Level string

const (
	LevelCritical Level = "critical" // Failures block the restore
	LevelInfo     Level = "info"     // Informational only
)

// CheckResult represents the outcome of a project check.
type CheckResult struct {
	Name    string `json:"name"`
	Level   Level  `json:"level"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Checker defines the interface for checks of the target project.
type Checker interface {
	// Check inspects the snapshot and returns the result.
	Check(ctx context.Context, snapshot *ProjectSnapshot) CheckResult
}

// RunChecks executes the checkers in order and stops at the first failed
// critical check, which is returned as a validation error.
func RunChecks(ctx context.Context, checkers []Checker, snapshot *ProjectSnapshot) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(checkers))
	for _, c := range checkers {
		r := c.Check(ctx, snapshot)
		results = append(results, r)
		if r.Level == LevelCritical && !r.Passed {
			return results, apperrors.Validation("%s", r.Message)
		}
	}
	return results, nil
}

// EmptyProjectCheckers returns the checks a project must pass before a restore.
func EmptyProjectCheckers(self Self) []Checker {
	return []Checker{
		NewBucketsChecker(),
		NewConfigurationsChecker(self),
	}
}

// ValidateEmptyProject fails with a validation error when the project has
// buckets or configurations other than the restore job's own.
func ValidateEmptyProject(ctx context.Context, api ProjectReader, self Self) error {
	snapshot, err := TakeSnapshot(ctx, api)
	if err != nil {
		return err
	}
	_, err = RunChecks(ctx, EmptyProjectCheckers(self), snapshot)
	return err
}
