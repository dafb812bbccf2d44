package restore

import (
	"context"
	"strings"

	"keboola.io/project-restore/internal/apperrors"
	"keboola.io/project-restore/internal/storageapi"
)

// RestoreProjectMetadata restores the default branch metadata.
func (r *Restore) RestoreProjectMetadata(ctx context.Context) error {
	metadata, err := loadManifest[storageapi.Metadata](ctx, r, branchMetadataManifest)
	if err != nil {
		return err
	}
	if r.report("Restore project metadata") {
		return nil
	}
	if len(metadata) == 0 {
		return nil
	}

	r.log.Info("Restoring project metadata")
	return r.api.AddBranchMetadata(ctx, metadata)
}

// RestoreBuckets creates every bucket of the backup except linked buckets.
func (r *Restore) RestoreBuckets(ctx context.Context, checkBackend bool) error {
	buckets, err := loadManifest[BackupBucket](ctx, r, bucketsManifest)
	if err != nil {
		return err
	}

	if checkBackend {
		owner, err := r.projectOwner(ctx)
		if err != nil {
			return err
		}
		for _, b := range buckets {
			if b.SourceBucket != nil || b.Backend == "" {
				continue
			}
			if !owner.SupportsBackend(b.Backend) {
				return apperrors.Validation("Missing %q backend in the project required by bucket %s. "+
					"Enable \"useDefaultBackend\" to restore buckets to the default backend.", b.Backend, b.ID)
			}
		}
	}

	for _, b := range buckets {
		if b.SourceBucket != nil {
			r.log.Infof("Skipping linked bucket %s", b.ID)
			continue
		}
		if err := r.restoreBucket(ctx, b, checkBackend); err != nil {
			return err
		}
	}
	return nil
}

func (r *Restore) restoreBucket(ctx context.Context, b BackupBucket, checkBackend bool) error {
	if r.report("Restore bucket %s", b.Name) {
		if len(b.Metadata) > 0 {
			r.report("Restore metadata of bucket %s", b.ID)
		}
		return nil
	}

	r.log.Infof("Restoring bucket %s", b.Name)
	req := storageapi.CreateBucketRequest{
		Name:        strings.TrimPrefix(b.Name, "c-"),
		Stage:       b.Stage,
		Description: b.Description,
		DisplayName: b.DisplayName,
	}
	if checkBackend {
		req.Backend = b.Backend
	}

	created, err := r.api.CreateBucket(ctx, req)
	if err != nil {
		return err
	}
	return r.api.AddBucketMetadata(ctx, created.ID, b.Metadata)
}

// bucketsByID indexes the buckets of the backup.
func (r *Restore) bucketsByID(ctx context.Context) (map[string]BackupBucket, error) {
	buckets, err := loadManifest[BackupBucket](ctx, r, bucketsManifest)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]BackupBucket, len(buckets))
	for _, b := range buckets {
		byID[b.ID] = b
	}
	return byID, nil
}
