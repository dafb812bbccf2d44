package restore

import (
	"context"

	"github.com/sirupsen/logrus"

	"keboola.io/project-restore/internal/backup"
	"keboola.io/project-restore/internal/storageapi"
)

// Restore restores one project backup into the project of a Storage API token.
// It is not safe for concurrent use.
type Restore struct {
	source backup.Source
	api    StorageAPI
	log    logrus.FieldLogger
	dryRun bool

	manifests map[string]any
	owner     *storageapi.ProjectOwner
	// restoredTables holds ids of tables created (or reported in dry-run) by RestoreTables
	restoredTables map[string]bool
}

var _ Restorer = (*Restore)(nil)

// New creates a restore session reading from source.
func New(source backup.Source, api StorageAPI, log logrus.FieldLogger) *Restore {
	return &Restore{
		source:         source,
		api:            api,
		log:            log,
		manifests:      map[string]any{},
		restoredTables: map[string]bool{},
	}
}

// SetDryRunMode enables or disables the report-only mode.
func (r *Restore) SetDryRunMode(dryRun bool) {
	r.dryRun = dryRun
}

// ListConfigsInBackup returns ids of the component's configurations in the backup.
func (r *Restore) ListConfigsInBackup(ctx context.Context, componentID string) ([]string, error) {
	components, err := loadManifest[BackupComponent](ctx, r, configurationsManifest)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, c := range components {
		if c.ID != componentID {
			continue
		}
		for _, cfg := range c.Configurations {
			ids = append(ids, cfg.ID)
		}
	}
	return ids, nil
}

// report logs a dry-run line when in dry-run mode and reports whether the
// caller must skip the mutating call.
func (r *Restore) report(format string, args ...any) bool {
	if !r.dryRun {
		return false
	}
	r.log.Infof("[dry-run] "+format, args...)
	return true
}

func (r *Restore) projectOwner(ctx context.Context) (*storageapi.ProjectOwner, error) {
	if r.owner != nil {
		return r.owner, nil
	}
	info, err := r.api.VerifyToken(ctx)
	if err != nil {
		return nil, err
	}
	r.owner = &info.Owner
	return r.owner, nil
}
