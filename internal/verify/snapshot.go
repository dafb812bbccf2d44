package verify

import (
	"context"

	"keboola.io/project-restore/internal/storageapi"
)

// ProjectReader lists what the target project contains.
type ProjectReader interface {
	ListBuckets(ctx context.Context) ([]storageapi.Bucket, error)
	ListComponents(ctx context.Context) ([]storageapi.Component, error)
}

// ComponentConfigs is a component with the ids of its configurations.
type ComponentConfigs struct {
	ID        string
	ConfigIDs []string
}

// ProjectSnapshot is the content of the target project at validation time.
type ProjectSnapshot struct {
	BucketIDs  []string
	Components []ComponentConfigs
}

// TakeSnapshot lists buckets and component configurations of the project.
func TakeSnapshot(ctx context.Context, api ProjectReader) (*ProjectSnapshot, error) {
	buckets, err := api.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	components, err := api.ListComponents(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &ProjectSnapshot{BucketIDs: make([]string, 0, len(buckets))}
	for _, b := range buckets {
		snapshot.BucketIDs = append(snapshot.BucketIDs, b.ID)
	}
	for _, c := range components {
		cc := ComponentConfigs{ID: c.ID}
		for _, cfg := range c.Configurations {
			cc.ConfigIDs = append(cc.ConfigIDs, cfg.ID)
		}
		snapshot.Components = append(snapshot.Components, cc)
	}
	return snapshot, nil
}
