package restore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"keboola.io/project-restore/internal/backup"
	"keboola.io/project-restore/internal/storageapi"
)

// Objects of a project backup, relative to the backup root.
const (
	BranchMetadataObject = "defaultBranchMetadata.json"
	BucketsObject        = "buckets.json"
	ConfigurationsObject = "configurations.json"
	TablesObject         = "tables.json"
	TriggersObject       = "triggers.json"
	NotificationsObject  = "notifications.json"
	PermanentFilesObject = "permanentFiles.json"
)

// ConfigurationObject returns the object holding a full configuration.
func ConfigurationObject(componentID, configID string) string {
	return fmt.Sprintf("configurations/%s/%s.json", componentID, configID)
}

// TableDataObject returns the object holding the gzipped CSV data of a table.
func TableDataObject(stage, bucketName, tableName string) string {
	return fmt.Sprintf("%s/%s/%s.csv.gz", stage, bucketName, tableName)
}

// PermanentFileObject returns the object holding the content of a permanent file.
func PermanentFileObject(id int64) string {
	return fmt.Sprintf("files/%d", id)
}

// BackupBucket is an entry of buckets.json.
type BackupBucket struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Stage        string                `json:"stage"`
	Description  string                `json:"description"`
	DisplayName  string                `json:"displayName"`
	Backend      string                `json:"backend"`
	SourceBucket *BackupRef            `json:"sourceBucket,omitempty"`
	Metadata     []storageapi.Metadata `json:"metadata"`
}

// BackupRef references another backup object by id.
type BackupRef struct {
	ID      string     `json:"id"`
	Name    string     `json:"name,omitempty"`
	Stage   string     `json:"stage,omitempty"`
	Project *BackupRef `json:"project,omitempty"`
}

// BackupComponent is an entry of configurations.json.
type BackupComponent struct {
	ID             string                            `json:"id"`
	Configurations []storageapi.ConfigurationSummary `json:"configurations"`
}

// BackupConfiguration is the content of configurations/<component>/<id>.json.
type BackupConfiguration struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Configuration json.RawMessage       `json:"configuration"`
	State         json.RawMessage       `json:"state"`
	IsDisabled    bool                  `json:"isDisabled"`
	Rows          []BackupRow           `json:"rows"`
	Metadata      []storageapi.Metadata `json:"metadata"`
}

// BackupRow is a configuration row of a BackupConfiguration.
type BackupRow struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Configuration json.RawMessage `json:"configuration"`
	State         json.RawMessage `json:"state"`
	IsDisabled    bool            `json:"isDisabled"`
}

// BackupTable is an entry of tables.json.
type BackupTable struct {
	ID                   string                           `json:"id"`
	Name                 string                           `json:"name"`
	Bucket               BackupRef                        `json:"bucket"`
	PrimaryKey           []string                         `json:"primaryKey"`
	Columns              []string                         `json:"columns"`
	IsAlias              bool                             `json:"isAlias"`
	SourceTable          *BackupRef                       `json:"sourceTable,omitempty"`
	AliasFilter          *storageapi.AliasFilter          `json:"aliasFilter,omitempty"`
	AliasColumnsAutoSync *bool                            `json:"aliasColumnsAutoSync,omitempty"`
	Definition           *TableDefinition                 `json:"definition,omitempty"`
	Metadata             []storageapi.Metadata            `json:"metadata"`
	ColumnMetadata       map[string][]storageapi.Metadata `json:"columnMetadata"`
}

// TableDefinition is the native type definition of a typed table.
type TableDefinition struct {
	PrimaryKeysNames []string            `json:"primaryKeysNames"`
	Columns          []storageapi.Column `json:"columns"`
}

// BackupTrigger is an entry of triggers.json.
type BackupTrigger struct {
	ID                    string `json:"id"`
	Component             string `json:"component"`
	ConfigurationID       string `json:"configurationId"`
	CoolDownPeriodMinutes int    `json:"coolDownPeriodMinutes"`
	Tables                []struct {
		TableID string `json:"tableId"`
	} `json:"tables"`
}

// BackupFile is an entry of permanentFiles.json.
type BackupFile struct {
	ID   int64    `json:"id"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// manifest describes how a manifest object is announced and whether a backup
// must contain it.
type manifest struct {
	object   string
	entity   string
	required bool
}

var (
	branchMetadataManifest = manifest{BranchMetadataObject, "project metadata", false}
	bucketsManifest        = manifest{BucketsObject, "buckets", true}
	configurationsManifest = manifest{ConfigurationsObject, "configurations", true}
	tablesManifest         = manifest{TablesObject, "tables", true}
	triggersManifest       = manifest{TriggersObject, "triggers", false}
	notificationsManifest  = manifest{NotificationsObject, "notifications", false}
	permanentFilesManifest = manifest{PermanentFilesObject, "permanent files", false}
)

// loadManifest reads a JSON list manifest once per session. An optional
// manifest missing from the backup is an empty list.
func loadManifest[T any](ctx context.Context, r *Restore, m manifest) ([]T, error) {
	if cached, ok := r.manifests[m.object]; ok {
		return cached.([]T), nil
	}

	r.log.Infof("Downloading %s", m.entity)
	var items []T
	err := r.readJSON(ctx, m.object, &items)
	if err != nil && !(backup.IsNotExist(err) && !m.required) {
		return nil, err
	}

	r.manifests[m.object] = items
	return items, nil
}

func (r *Restore) readJSON(ctx context.Context, name string, v any) error {
	rc, err := r.source.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return &backup.Error{Source: r.source.Identifier(), Name: name, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}

// isEmptyJSON reports whether raw is absent, null, an empty object or an empty array.
func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
