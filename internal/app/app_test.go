package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keboola.io/project-restore/internal/apperrors"
	"keboola.io/project-restore/internal/backup"
	"keboola.io/project-restore/internal/config"
	"keboola.io/project-restore/internal/restore"
	"keboola.io/project-restore/internal/storageapi"
)

// fakeAPI implements the project listing and run id calls. The restore calls
// are never made because the restorer is faked too.
type fakeAPI struct {
	restore.StorageAPI

	buckets    []storageapi.Bucket
	components []storageapi.Component
	listErr    error
	runID      string
	generated  int
	listed     int
}

func (f *fakeAPI) ListBuckets(ctx context.Context) ([]storageapi.Bucket, error) {
	f.listed++
	return f.buckets, f.listErr
}

func (f *fakeAPI) ListComponents(ctx context.Context) ([]storageapi.Component, error) {
	return f.components, nil
}

func (f *fakeAPI) SetRunID(runID string) {
	f.runID = runID
}

func (f *fakeAPI) GenerateRunID(ctx context.Context) (string, error) {
	f.generated++
	return "generated-run", nil
}

// fakeRestorer records the steps it was asked to run.
type fakeRestorer struct {
	calls   []string
	backup  map[string][]string
	failOn  string
	failErr error
}

func (f *fakeRestorer) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn != "" && f.failOn == call {
		return f.failErr
	}
	return nil
}

func (f *fakeRestorer) SetDryRunMode(dryRun bool) {
	f.calls = append(f.calls, fmt.Sprintf("SetDryRunMode(%t)", dryRun))
}

func (f *fakeRestorer) RestoreProjectMetadata(ctx context.Context) error {
	return f.record("RestoreProjectMetadata")
}

func (f *fakeRestorer) RestoreBuckets(ctx context.Context, checkBackend bool) error {
	return f.record(fmt.Sprintf("RestoreBuckets(%t)", checkBackend))
}

func (f *fakeRestorer) RestoreConfigs(ctx context.Context, skipComponents []string, configurationIDs []string) error {
	return f.record(fmt.Sprintf("RestoreConfigs(%v)", configurationIDs))
}

func (f *fakeRestorer) RestoreTables(ctx context.Context, tableIDs []string) error {
	return f.record(fmt.Sprintf("RestoreTables(%v)", tableIDs))
}

func (f *fakeRestorer) RestoreTableAliases(ctx context.Context, tableIDs []string) error {
	return f.record(fmt.Sprintf("RestoreTableAliases(%v)", tableIDs))
}

func (f *fakeRestorer) RestoreTriggers(ctx context.Context) error {
	return f.record("RestoreTriggers")
}

func (f *fakeRestorer) RestoreNotifications(ctx context.Context) error {
	return f.record("RestoreNotifications")
}

func (f *fakeRestorer) RestorePermanentFiles(ctx context.Context) error {
	return f.record("RestorePermanentFiles")
}

func (f *fakeRestorer) ListConfigsInBackup(ctx context.Context, componentID string) ([]string, error) {
	return f.backup[componentID], nil
}

type fixture struct {
	api       *fakeAPI
	restorer  *fakeRestorer
	hook      *test.Hook
	env       *config.Environment
	sources   int
	sourceErr error
}

func newFixture() *fixture {
	return &fixture{
		api:      &fakeAPI{},
		restorer: &fakeRestorer{backup: map[string][]string{}},
		env:      &config.Environment{URL: "https://connection.keboola.com", Token: "token", RunID: "run-1"},
	}
}

func (f *fixture) run(t *testing.T, p *config.Parameters) error {
	t.Helper()
	log, hook := test.NewNullLogger()
	f.hook = hook
	factories := Factories{
		StorageAPI: func(env *config.Environment, log logrus.FieldLogger) (StorageAPI, error) {
			return f.api, nil
		},
		Source: func(ctx context.Context, p *config.Parameters) (backup.Source, error) {
			f.sources++
			if f.sourceErr != nil {
				return nil, f.sourceErr
			}
			return &backup.FSSource{Root: "/backup"}, nil
		},
		Restorer: func(source backup.Source, api StorageAPI, log logrus.FieldLogger) restore.Restorer {
			return f.restorer
		},
	}
	return New(p, f.env, log, factories).Run(context.Background())
}

func (f *fixture) warnings() []string {
	var out []string
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}

func s3Params() *config.Parameters {
	return &config.Parameters{
		S3: &config.S3{
			BackupURI:       "https://project-restore.s3.eu-central-1.amazonaws.com/backup",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			SessionToken:    "token",
		},
	}
}

func TestRunAllSteps(t *testing.T) {
	f := newFixture()
	p := s3Params()
	p.TablesToMigrate = []string{"in.c-a.t1"}
	p.ConfigurationsToMigrate = []string{"123"}

	require.NoError(t, f.run(t, p))
	assert.Equal(t, []string{
		"RestoreProjectMetadata",
		"RestoreBuckets(true)",
		"RestoreConfigs([123])",
		"RestoreTables([in.c-a.t1])",
		"RestoreTableAliases([in.c-a.t1])",
		"RestoreTriggers",
		"RestoreNotifications",
		"RestorePermanentFiles",
	}, f.restorer.calls)
	assert.Equal(t, "run-1", f.api.runID)
	assert.Zero(t, f.api.generated)
	assert.Empty(t, f.warnings())
}

func TestRunGeneratesRunID(t *testing.T) {
	f := newFixture()
	f.env.RunID = ""

	require.NoError(t, f.run(t, s3Params()))
	assert.Equal(t, 1, f.api.generated)
	assert.Equal(t, "generated-run", f.api.runID)
}

func TestRunWithoutBuckets(t *testing.T) {
	f := newFixture()
	p := s3Params()
	p.RestoreBuckets = boolPtr(false)
	p.RestoreTriggers = boolPtr(false)
	p.RestoreNotifications = boolPtr(false)
	p.RestorePermanentFiles = boolPtr(false)
	p.RestoreProjectMetadata = boolPtr(false)

	require.NoError(t, f.run(t, p))
	assert.Equal(t, []string{"RestoreConfigs([])"}, f.restorer.calls)
}

func TestRunWithoutTables(t *testing.T) {
	f := newFixture()
	p := s3Params()
	p.RestoreTables = boolPtr(false)
	p.UseDefaultBackend = boolPtr(true)

	require.NoError(t, f.run(t, p))
	assert.Contains(t, f.restorer.calls, "RestoreBuckets(false)")
	assert.NotContains(t, f.restorer.calls, "RestoreTables([])")
	assert.NotContains(t, f.restorer.calls, "RestoreTableAliases([])")
}

func TestRunDryRun(t *testing.T) {
	f := newFixture()
	p := s3Params()
	p.DryRun = boolPtr(true)

	require.NoError(t, f.run(t, p))
	require.NotEmpty(t, f.restorer.calls)
	assert.Equal(t, "SetDryRunMode(true)", f.restorer.calls[0])
}

func TestRunWarnsAboutLegacyComponents(t *testing.T) {
	f := newFixture()
	f.restorer.backup = map[string][]string{
		"orchestrator":                {"1", "2"},
		"keboola.wr-db-snowflake":     {"3"},
		"keboola.wr-db-snowflake-gcs": {"4"},
	}

	require.NoError(t, f.run(t, s3Params()))
	assert.Equal(t, []string{
		"Orchestrations was not restored. You can transfer orchestrations with Orchestrator Migrate App",
		"Snowflake writers was not restored. You can transfer writers with Snowflake Writer Migrate App",
	}, f.warnings())
}

func TestRunValidatesProjectFirst(t *testing.T) {
	f := newFixture()
	f.api.buckets = []storageapi.Bucket{{ID: "in.c-a"}}

	err := f.run(t, s3Params())
	require.Error(t, err)
	assert.Equal(t, "Storage is not empty. Existing buckets: in.c-a", err.Error())
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Empty(t, f.restorer.calls)
	assert.Equal(t, 1, f.sources)
}

func TestRunChecksBackupLocationBeforeStorageAPI(t *testing.T) {
	f := newFixture()
	f.env.RunID = ""
	f.api.buckets = []storageapi.Bucket{{ID: "in.c-a"}}
	p := s3Params()
	p.S3.BackupURI = "https://backups.example.com/b/p"
	f.sourceErr = apperrors.Configuration(`Parameter "backupUri" is not valid: Missing region info in uri: https://backups.example.com/b/p`)

	err := f.run(t, p)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "Missing region info")
	assert.Zero(t, f.api.generated)
	assert.Zero(t, f.api.listed)
	assert.Empty(t, f.restorer.calls)
}

func TestRunSkipsValidation(t *testing.T) {
	f := newFixture()
	f.api.buckets = []storageapi.Bucket{{ID: "in.c-a"}}
	p := s3Params()
	p.CheckEmptyProject = boolPtr(false)

	require.NoError(t, f.run(t, p))
	assert.NotEmpty(t, f.restorer.calls)
}

func TestRunInvalidConfiguration(t *testing.T) {
	f := newFixture()

	err := f.run(t, &config.Parameters{})
	require.Error(t, err)
	assert.Equal(t, "ABS, S3 or GCS must be configured.", err.Error())
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestRunTranslatesErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind apperrors.Kind
		wantMsg  string
	}{
		{
			name:     "storage api",
			err:      &storageapi.Error{StatusCode: 400, Message: "Bucket already exists"},
			wantKind: apperrors.KindBackend,
			wantMsg:  "Bucket already exists",
		},
		{
			name:     "backup source",
			err:      &backup.Error{Source: "s3://b/", Name: "buckets.json", Err: errors.New("access denied")},
			wantKind: apperrors.KindBackend,
			wantMsg:  "failed to read buckets.json from s3://b/: access denied",
		},
		{
			name:     "user error",
			err:      apperrors.Validation("Missing backend"),
			wantKind: apperrors.KindValidation,
			wantMsg:  "Missing backend",
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			wantMsg: "restore failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.restorer.failOn = "RestoreBuckets(true)"
			f.restorer.failErr = tt.err

			err := f.run(t, s3Params())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
			assert.Equal(t, []string{"RestoreProjectMetadata", "RestoreBuckets(true)"}, f.restorer.calls)
		})
	}
}

func TestRunTranslatesValidationListingErrors(t *testing.T) {
	f := newFixture()
	f.api.listErr = &storageapi.Error{StatusCode: 401, Message: "Invalid access token"}

	err := f.run(t, s3Params())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBackend, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid access token")
}

func TestCustomRestoreComponents(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"orchestrator",
		"gooddata-writer",
		"keboola.wr-db-snowflake",
		"keboola.wr-snowflake-blob-storage",
		"keboola.wr-db-snowflake-gcs",
		"keboola.wr-db-snowflake-gcs-s3",
	}, CustomRestoreComponents())
}

func TestDefaultStorageAPI(t *testing.T) {
	var userAgent, runID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		runID = r.Header.Get("X-KBC-RunId")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	log, _ := test.NewNullLogger()
	api, err := DefaultFactories("1.2.3").StorageAPI(&config.Environment{URL: srv.URL, Token: "token"}, log)
	require.NoError(t, err)
	api.SetRunID("run-1")

	buckets, err := api.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, buckets)
	assert.Equal(t, "keboola-project-restore/1.2.3", userAgent)
	assert.Equal(t, "run-1", runID)
}

func TestDefaultStorageAPIMissingEnvironment(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := DefaultFactories("dev").StorageAPI(&config.Environment{URL: "https://connection.keboola.com"}, log)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}
