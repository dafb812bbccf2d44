// Package app runs a project restore from its configuration and environment.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"keboola.io/project-restore/internal/apperrors"
	"keboola.io/project-restore/internal/backup"
	"keboola.io/project-restore/internal/config"
	"keboola.io/project-restore/internal/restore"
	"keboola.io/project-restore/internal/storageapi"
	"keboola.io/project-restore/internal/verify"
)

// StorageAPI is the Storage API surface the application needs.
type StorageAPI interface {
	restore.StorageAPI
	verify.ProjectReader
	SetRunID(runID string)
	GenerateRunID(ctx context.Context) (string, error)
}

var _ StorageAPI = (*storageapi.Client)(nil)

// legacyComponent is a component restored by a dedicated migrate application
// instead of RestoreConfigs.
type legacyComponent struct {
	ids     []string
	warning string
}

var legacyComponents = []legacyComponent{
	{
		ids:     []string{"orchestrator"},
		warning: "Orchestrations was not restored. You can transfer orchestrations with Orchestrator Migrate App",
	},
	{
		ids:     []string{"gooddata-writer"},
		warning: "GoodData writers was not restored. You can transfer writers with GoodData Writer Migrate App",
	},
	{
		ids: []string{
			"keboola.wr-db-snowflake",
			"keboola.wr-snowflake-blob-storage",
			"keboola.wr-db-snowflake-gcs",
			"keboola.wr-db-snowflake-gcs-s3",
		},
		warning: "Snowflake writers was not restored. You can transfer writers with Snowflake Writer Migrate App",
	},
}

// CustomRestoreComponents lists the components RestoreConfigs skips.
func CustomRestoreComponents() []string {
	var ids []string
	for _, c := range legacyComponents {
		ids = append(ids, c.ids...)
	}
	return ids
}

// Factories build the collaborators of an App. Tests replace them.
type Factories struct {
	StorageAPI func(env *config.Environment, log logrus.FieldLogger) (StorageAPI, error)
	Source     func(ctx context.Context, p *config.Parameters) (backup.Source, error)
	Restorer   func(source backup.Source, api StorageAPI, log logrus.FieldLogger) restore.Restorer
}

// DefaultFactories wire the Storage API client, the configured backup source
// and the restore engine. The version is sent in the User-Agent header.
func DefaultFactories(version string) Factories {
	return Factories{
		StorageAPI: func(env *config.Environment, log logrus.FieldLogger) (StorageAPI, error) {
			if env.URL == "" || env.Token == "" {
				return nil, apperrors.Configuration("Environment variables KBC_URL and KBC_TOKEN must be set.")
			}
			client, err := storageapi.New(env.URL, env.Token,
				storageapi.WithLogger(log),
				storageapi.WithUserAgent(UserAgent(version)),
			)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		Source: backup.NewSourceFromConfig,
		Restorer: func(source backup.Source, api StorageAPI, log logrus.FieldLogger) restore.Restorer {
			return restore.New(source, api, log)
		},
	}
}

// UserAgent identifies the binary to the Storage API.
func UserAgent(version string) string {
	return "keboola-project-restore/" + version
}

// App restores one backup into the project addressed by the environment.
type App struct {
	params    *config.Parameters
	env       *config.Environment
	log       logrus.FieldLogger
	factories Factories
}

func New(params *config.Parameters, env *config.Environment, log logrus.FieldLogger, factories Factories) *App {
	return &App{
		params:    params,
		env:       env,
		log:       log,
		factories: factories,
	}
}

// Run opens the backup source, validates the project, runs the enabled restore steps in order and
// warns about backup content that needs a dedicated migration.
func (a *App) Run(ctx context.Context) error {
	if err := a.params.Validate(); err != nil {
		return err
	}

	// The backup location is checked before the Storage API is touched.
	source, err := a.factories.Source(ctx, a.params)
	if err != nil {
		return TranslateError(err)
	}
	a.log.Debugf("Restoring from %s", source.Identifier())

	api, err := a.factories.StorageAPI(a.env, a.log)
	if err != nil {
		return TranslateError(err)
	}
	if err := a.initRunID(ctx, api); err != nil {
		return TranslateError(err)
	}

	if a.params.ShouldCheckEmptyProject() {
		self := verify.Self{ComponentID: a.env.ComponentID, ConfigID: a.env.ConfigID}
		if err := verify.ValidateEmptyProject(ctx, api, self); err != nil {
			return TranslateError(err)
		}
	}

	restorer := a.factories.Restorer(source, api, a.log)
	if a.params.IsDryRun() {
		restorer.SetDryRunMode(true)
	}

	for _, s := range a.steps(restorer) {
		if !s.enabled {
			continue
		}
		if err := s.run(ctx); err != nil {
			return TranslateError(err)
		}
	}

	return TranslateError(a.warnLegacyComponents(ctx, restorer))
}

func (a *App) initRunID(ctx context.Context, api StorageAPI) error {
	runID := a.env.RunID
	if runID == "" {
		var err error
		if runID, err = api.GenerateRunID(ctx); err != nil {
			return err
		}
	}
	api.SetRunID(runID)
	return nil
}

type step struct {
	enabled bool
	run     func(ctx context.Context) error
}

func (a *App) steps(r restore.Restorer) []step {
	p := a.params
	buckets := p.ShouldRestoreBuckets()
	tables := buckets && p.ShouldRestoreTables()
	return []step{
		{p.ShouldRestoreProjectMetadata(), r.RestoreProjectMetadata},
		{buckets, func(ctx context.Context) error {
			return r.RestoreBuckets(ctx, !p.ShouldUseDefaultBackend())
		}},
		{p.ShouldRestoreConfigs(), func(ctx context.Context) error {
			return r.RestoreConfigs(ctx, CustomRestoreComponents(), p.ConfigurationsToMigrate)
		}},
		{tables, func(ctx context.Context) error {
			return r.RestoreTables(ctx, p.TablesToMigrate)
		}},
		{tables, func(ctx context.Context) error {
			return r.RestoreTableAliases(ctx, p.TablesToMigrate)
		}},
		{p.ShouldRestoreTriggers(), r.RestoreTriggers},
		{p.ShouldRestoreNotifications(), r.RestoreNotifications},
		{p.ShouldRestorePermanentFiles(), r.RestorePermanentFiles},
	}
}

func (a *App) warnLegacyComponents(ctx context.Context, r restore.Restorer) error {
	for _, c := range legacyComponents {
		for _, id := range c.ids {
			configs, err := r.ListConfigsInBackup(ctx, id)
			if err != nil {
				return err
			}
			if len(configs) > 0 {
				a.log.Warn(c.warning)
				break
			}
		}
	}
	return nil
}

// TranslateError turns Storage API and backup source failures into user errors
// carrying the original message. User errors are returned as they are and other
// errors get the "restore failed" context.
func TranslateError(err error) error {
	if err == nil || apperrors.IsUserError(err) {
		return err
	}
	var apiErr *storageapi.Error
	var sourceErr *backup.Error
	if errors.As(err, &apiErr) || errors.As(err, &sourceErr) {
		return apperrors.Backend(err)
	}
	return fmt.Errorf("restore failed: %w", err)
}
