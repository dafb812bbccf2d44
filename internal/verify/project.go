package verify

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// IgnoredComponents are never counted as existing configurations: they belong
// to migration tooling or are created by the stack itself.
var IgnoredComponents = []string{
	"keboola.app-project-migrate-large-tables",
	"keboola.app-project-migrate",
	"keboola.orchestrator",
}

// Self identifies the configuration of the running restore job.
type Self struct {
	ComponentID string
	ConfigID    string
}

// BucketsChecker verifies that the project has no buckets.
type BucketsChecker struct{}

func NewBucketsChecker() *BucketsChecker {
	return &BucketsChecker{}
}

func (c *BucketsChecker) Check(ctx context.Context, snapshot *ProjectSnapshot) CheckResult {
	result := CheckResult{
		Name:  "no_buckets",
		Level: LevelCritical,
	}

	if len(snapshot.BucketIDs) > 0 {
		result.Message = fmt.Sprintf("Storage is not empty. Existing buckets: %s", strings.Join(snapshot.BucketIDs, ", "))
		return result
	}

	result.Passed = true
	result.Message = "Storage has no buckets"
	return result
}

// ConfigurationsChecker verifies that the project has no configurations,
// except the restore job's own one.
type ConfigurationsChecker struct {
	self Self
}

func NewConfigurationsChecker(self Self) *ConfigurationsChecker {
	return &ConfigurationsChecker{self: self}
}

func (c *ConfigurationsChecker) Check(ctx context.Context, snapshot *ProjectSnapshot) CheckResult {
	result := CheckResult{
		Name:  "no_configurations",
		Level: LevelCritical,
	}

	var remaining []ComponentConfigs
	for _, comp := range snapshot.Components {
		if !slices.Contains(IgnoredComponents, comp.ID) {
			remaining = append(remaining, comp)
		}
	}

	switch {
	case len(remaining) == 0:
		result.Passed = true
		result.Message = "Project has no configurations"
	case c.isSelf(remaining):
		result.Passed = true
		result.Message = fmt.Sprintf("Only configuration %s of %s exists", c.self.ConfigID, c.self.ComponentID)
	default:
		result.Message = "Project is not empty. Delete all existing component configurations."
	}
	return result
}

// isSelf holds only for exactly one component with exactly one configuration
// matching the job's own ids.
func (c *ConfigurationsChecker) isSelf(remaining []ComponentConfigs) bool {
	if len(remaining) != 1 || c.self.ComponentID == "" {
		return false
	}
	comp := remaining[0]
	return comp.ID == c.self.ComponentID &&
		len(comp.ConfigIDs) == 1 &&
		comp.ConfigIDs[0] == c.self.ConfigID
}
