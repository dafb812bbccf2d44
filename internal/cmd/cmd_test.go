package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keboola.io/project-restore/internal/app"
	"keboola.io/project-restore/internal/apperrors"
	"keboola.io/project-restore/internal/backup"
	"keboola.io/project-restore/internal/config"
	"keboola.io/project-restore/internal/restore"
	"keboola.io/project-restore/internal/storageapi"
)

const testConfig = `{
  "parameters": {
    "s3": {
      "backupUri": "https://project-restore.s3.eu-central-1.amazonaws.com/backup",
      "accessKeyId": "key",
      "#secretAccessKey": "secret",
      "#sessionToken": "token"
    },
    "restoreTriggers": false
  }
}`

type projectAPI struct {
	app.StorageAPI
	buckets []storageapi.Bucket
}

func (p *projectAPI) ListBuckets(ctx context.Context) ([]storageapi.Bucket, error) {
	return p.buckets, nil
}

func (p *projectAPI) ListComponents(ctx context.Context) ([]storageapi.Component, error) {
	return nil, nil
}

func (p *projectAPI) SetRunID(runID string) {}

// stepRecorder logs the steps it is asked to run.
type stepRecorder struct {
	restore.Restorer
	log   logrus.FieldLogger
	steps []string
}

func (s *stepRecorder) step(name string) error {
	s.steps = append(s.steps, name)
	s.log.Info(name)
	return nil
}

func (s *stepRecorder) RestoreProjectMetadata(ctx context.Context) error {
	return s.step("metadata")
}
func (s *stepRecorder) RestoreBuckets(ctx context.Context, checkBackend bool) error {
	return s.step("buckets")
}
func (s *stepRecorder) RestoreConfigs(ctx context.Context, skip, ids []string) error {
	return s.step("configs")
}
func (s *stepRecorder) RestoreTables(ctx context.Context, ids []string) error {
	return s.step("tables")
}
func (s *stepRecorder) RestoreTableAliases(ctx context.Context, ids []string) error {
	return s.step("aliases")
}
func (s *stepRecorder) RestoreNotifications(ctx context.Context) error {
	return s.step("notifications")
}
func (s *stepRecorder) RestorePermanentFiles(ctx context.Context) error {
	return s.step("files")
}
func (s *stepRecorder) ListConfigsInBackup(ctx context.Context, componentID string) ([]string, error) {
	if componentID == "orchestrator" {
		return []string{"1"}, nil
	}
	return nil, nil
}

type harness struct {
	api      *projectAPI
	restorer *stepRecorder
	stdout   bytes.Buffer
	stderr   bytes.Buffer
}

func setup(t *testing.T) *harness {
	t.Helper()
	t.Setenv("KBC_URL", "https://connection.keboola.com")
	t.Setenv("KBC_TOKEN", "token")
	t.Setenv("KBC_RUNID", "run-1")
	t.Setenv("KBC_DATADIR", "/data")

	h := &harness{api: &projectAPI{}, restorer: &stepRecorder{}}

	origFs, origFactories := appFs, factories
	t.Cleanup(func() {
		appFs, factories = origFs, origFactories
		dataDir, debug = "", false
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	appFs = afero.NewMemMapFs()
	factories = app.Factories{
		StorageAPI: func(env *config.Environment, log logrus.FieldLogger) (app.StorageAPI, error) {
			return h.api, nil
		},
		Source: func(ctx context.Context, p *config.Parameters) (backup.Source, error) {
			return &backup.FSSource{FS: appFs, Root: "/backup"}, nil
		},
		Restorer: func(source backup.Source, api app.StorageAPI, log logrus.FieldLogger) restore.Restorer {
			h.restorer.log = log
			return h.restorer
		},
	}
	rootCmd.SetOut(&h.stdout)
	rootCmd.SetErr(&h.stderr)
	return h
}

func execute(args ...string) error {
	rootCmd.SetArgs(append([]string{}, args...))
	return Execute(context.Background())
}

func TestRootRunsRestore(t *testing.T) {
	h := setup(t)
	require.NoError(t, afero.WriteFile(appFs, "/data/config.json", []byte(testConfig), 0644))

	require.NoError(t, execute())
	assert.Equal(t, []string{"metadata", "buckets", "configs", "tables", "aliases", "notifications", "files"}, h.restorer.steps)
	assert.Equal(t, "metadata\nbuckets\nconfigs\ntables\naliases\nnotifications\nfiles\n", h.stdout.String())
	assert.Equal(t, "Orchestrations was not restored. You can transfer orchestrations with Orchestrator Migrate App\n", h.stderr.String())
}

func TestRootDataDirFlag(t *testing.T) {
	h := setup(t)
	require.NoError(t, afero.WriteFile(appFs, "/custom/config.json", []byte(testConfig), 0644))

	require.NoError(t, execute("--data-dir", "/custom"))
	assert.NotEmpty(t, h.restorer.steps)
}

func TestRootMissingConfig(t *testing.T) {
	setup(t)

	err := execute("--data-dir", "/data")
	require.Error(t, err)
	assert.True(t, apperrors.IsUserError(err))
	assert.Equal(t, "Config file not found in /data", err.Error())
}

func TestRootProjectNotEmpty(t *testing.T) {
	h := setup(t)
	h.api.buckets = []storageapi.Bucket{{ID: "in.c-a"}}
	require.NoError(t, afero.WriteFile(appFs, "/data/config.json", []byte(testConfig), 0644))

	err := execute("--data-dir", "/data")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Empty(t, h.restorer.steps)
}

func TestCheckCommand(t *testing.T) {
	h := setup(t)

	require.NoError(t, execute("check", "--data-dir", "/data"))
	out := h.stdout.String()
	assert.Contains(t, out, "no_buckets")
	assert.Contains(t, out, "no_configurations")
	assert.Contains(t, out, "Checks: 2/2 passed")
}

func TestCheckCommandFailure(t *testing.T) {
	h := setup(t)
	h.api.buckets = []storageapi.Bucket{{ID: "in.c-a"}, {ID: "in.c-b"}}

	err := execute("check", "--data-dir", "/data")
	require.Error(t, err)
	assert.Equal(t, "Storage is not empty. Existing buckets: in.c-a, in.c-b", err.Error())
	assert.Contains(t, h.stdout.String(), "Checks: 1/2 passed")
}

func TestInitWritesLoadableConfig(t *testing.T) {
	h := setup(t)
	answers := strings.Join([]string{
		"abs",
		"backups",
		"BlobEndpoint=https://account.blob.core.windows.net;SharedAccessSignature=sv=2020",
		"",
	}, "\n") + "\n"
	rootCmd.SetIn(strings.NewReader(answers))

	require.NoError(t, execute("init", "--data-dir", "/init"))
	assert.Contains(t, h.stdout.String(), "✓ Wrote config to /init/config.yml")

	cfg, err := config.Load(appFs, "/init")
	require.NoError(t, err)
	require.NotNil(t, cfg.Parameters.ABS)
	assert.Equal(t, "backups", cfg.Parameters.ABS.Container)
	assert.True(t, cfg.Parameters.IsDryRun())
	assert.Nil(t, cfg.Parameters.Encryption)
}

func TestInitRefusesToOverwrite(t *testing.T) {
	setup(t)
	require.NoError(t, afero.WriteFile(appFs, "/data/config.json", []byte(testConfig), 0644))

	err := execute("init", "--data-dir", "/data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a config file already exists at /data/config.json")
}

func TestVersion(t *testing.T) {
	h := setup(t)

	require.NoError(t, execute("version"))
	assert.Equal(t, version+"\n", h.stdout.String())
}
