package restore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"keboola.io/project-restore/internal/backup"
	"keboola.io/project-restore/internal/storageapi"
)

// fakeAPI records Storage API calls in a compact textual form.
type fakeAPI struct {
	calls   []string
	owner   storageapi.ProjectOwner
	uploads map[string]string
	fileID  int64
	failOn  string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		owner:   storageapi.ProjectOwner{DefaultBackend: "snowflake", HasSnowflake: true},
		uploads: map[string]string{},
	}
}

func (f *fakeAPI) record(method string, format string, args ...any) error {
	f.calls = append(f.calls, method+" "+fmt.Sprintf(format, args...))
	if f.failOn == method {
		return &storageapi.Error{StatusCode: 400, Message: method + " failed"}
	}
	return nil
}

func (f *fakeAPI) mutations() []string {
	var out []string
	for _, c := range f.calls {
		if !strings.HasPrefix(c, "VerifyToken") {
			out = append(out, c)
		}
	}
	return out
}

func asJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func (f *fakeAPI) VerifyToken(ctx context.Context) (*storageapi.TokenInfo, error) {
	if err := f.record("VerifyToken", ""); err != nil {
		return nil, err
	}
	return &storageapi.TokenInfo{ID: "1", Owner: f.owner}, nil
}

func (f *fakeAPI) CreateBucket(ctx context.Context, req storageapi.CreateBucketRequest) (*storageapi.Bucket, error) {
	if err := f.record("CreateBucket", "%s", asJSON(req)); err != nil {
		return nil, err
	}
	return &storageapi.Bucket{ID: req.Stage + ".c-" + req.Name, Name: "c-" + req.Name, Stage: req.Stage}, nil
}

func (f *fakeAPI) AddBucketMetadata(ctx context.Context, bucketID string, metadata []storageapi.Metadata) error {
	return f.record("AddBucketMetadata", "%s %d", bucketID, len(metadata))
}

func (f *fakeAPI) AddBranchMetadata(ctx context.Context, metadata []storageapi.Metadata) error {
	return f.record("AddBranchMetadata", "%s", asJSON(metadata))
}

func (f *fakeAPI) AddConfiguration(ctx context.Context, componentID string, cfg storageapi.Configuration) (*storageapi.Configuration, error) {
	if err := f.record("AddConfiguration", "%s %s", componentID, asJSON(cfg)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (f *fakeAPI) UpdateConfigurationState(ctx context.Context, componentID, configID string, state any) error {
	return f.record("UpdateConfigurationState", "%s %s %s", componentID, configID, asJSON(state))
}

func (f *fakeAPI) AddConfigurationRow(ctx context.Context, componentID, configID string, row storageapi.ConfigurationRow) (*storageapi.ConfigurationRow, error) {
	if err := f.record("AddConfigurationRow", "%s %s %s", componentID, configID, row.ID); err != nil {
		return nil, err
	}
	return &row, nil
}

func (f *fakeAPI) UpdateConfigurationRowState(ctx context.Context, componentID, configID, rowID string, state any) error {
	return f.record("UpdateConfigurationRowState", "%s %s %s %s", componentID, configID, rowID, asJSON(state))
}

func (f *fakeAPI) AddConfigurationMetadata(ctx context.Context, componentID, configID string, metadata []storageapi.Metadata) error {
	return f.record("AddConfigurationMetadata", "%s %s %d", componentID, configID, len(metadata))
}

func (f *fakeAPI) CreateTableDefinition(ctx context.Context, bucketID string, def storageapi.TableDefinition) (*storageapi.Table, error) {
	if err := f.record("CreateTableDefinition", "%s %s", bucketID, def.Name); err != nil {
		return nil, err
	}
	return &storageapi.Table{ID: bucketID + "." + def.Name, Name: def.Name}, nil
}

func (f *fakeAPI) CreateTableFromFile(ctx context.Context, bucketID, name string, fileID int64, primaryKey []string) (*storageapi.Table, error) {
	if err := f.record("CreateTableFromFile", "%s %s %d %v", bucketID, name, fileID, primaryKey); err != nil {
		return nil, err
	}
	return &storageapi.Table{ID: bucketID + "." + name, Name: name}, nil
}

func (f *fakeAPI) ImportTable(ctx context.Context, tableID string, fileID int64) error {
	return f.record("ImportTable", "%s %d", tableID, fileID)
}

func (f *fakeAPI) CreateTableAlias(ctx context.Context, bucketID string, req storageapi.CreateAliasRequest) (*storageapi.Table, error) {
	if err := f.record("CreateTableAlias", "%s %s", bucketID, asJSON(req)); err != nil {
		return nil, err
	}
	return &storageapi.Table{ID: bucketID + "." + req.Name, Name: req.Name, IsAlias: true}, nil
}

func (f *fakeAPI) AddTableMetadata(ctx context.Context, tableID string, req storageapi.TableMetadataRequest) error {
	return f.record("AddTableMetadata", "%s %d %d", tableID, len(req.Metadata), len(req.ColumnsMetadata))
}

func (f *fakeAPI) UploadFile(ctx context.Context, req storageapi.UploadFileRequest, r io.Reader) (*storageapi.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := f.record("UploadFile", "%s permanent=%t tags=%v", req.Name, req.IsPermanent, req.Tags); err != nil {
		return nil, err
	}
	f.fileID++
	f.uploads[req.Name] = string(data)
	return &storageapi.File{ID: f.fileID, Name: req.Name, IsPermanent: req.IsPermanent}, nil
}

func (f *fakeAPI) CreateToken(ctx context.Context, req storageapi.CreateTokenRequest) (*storageapi.Token, error) {
	if err := f.record("CreateToken", "%s", asJSON(req)); err != nil {
		return nil, err
	}
	return &storageapi.Token{ID: "token-1"}, nil
}

func (f *fakeAPI) CreateTrigger(ctx context.Context, trigger storageapi.Trigger) (*storageapi.Trigger, error) {
	if err := f.record("CreateTrigger", "%s", asJSON(trigger)); err != nil {
		return nil, err
	}
	trigger.ID = "trigger-1"
	return &trigger, nil
}

func (f *fakeAPI) CreateNotificationSubscription(ctx context.Context, sub storageapi.NotificationSubscription) (*storageapi.NotificationSubscription, error) {
	if err := f.record("CreateNotificationSubscription", "%s", asJSON(sub)); err != nil {
		return nil, err
	}
	return &sub, nil
}

// backupFixture is an in-memory backup.
type backupFixture struct {
	t  *testing.T
	fs afero.Fs
}

func newBackupFixture(t *testing.T) *backupFixture {
	return &backupFixture{t: t, fs: afero.NewMemMapFs()}
}

func (b *backupFixture) put(name string, v any) {
	b.t.Helper()
	var data []byte
	switch content := v.(type) {
	case string:
		data = []byte(content)
	default:
		var err error
		data, err = json.Marshal(v)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, afero.WriteFile(b.fs, "/backup/"+name, data, 0644))
}

func (b *backupFixture) source() backup.Source {
	return &backup.FSSource{FS: b.fs, Root: "/backup"}
}

func newTestRestore(t *testing.T, b *backupFixture) (*Restore, *fakeAPI, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	api := newFakeAPI()
	return New(b.source(), api, log), api, hook
}

func messages(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}
