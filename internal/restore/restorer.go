package restore

import (
	"context"
	"io"

	"keboola.io/project-restore/internal/storageapi"
)

// Restorer defines the operations of a project restore session bound to one backup.
type Restorer interface {
	// SetDryRunMode switches the session to report what would be restored without
	// making any mutating Storage API call.
	SetDryRunMode(dryRun bool)
	// RestoreProjectMetadata restores the metadata of the default branch.
	RestoreProjectMetadata(ctx context.Context) error
	// RestoreBuckets creates the buckets of the backup. With checkBackend, each
	// bucket keeps its backend and the project must support it.
	RestoreBuckets(ctx context.Context, checkBackend bool) error
	// RestoreConfigs restores component configurations, skipping the listed
	// components. A non-empty configurationIDs restricts the restore to those ids.
	RestoreConfigs(ctx context.Context, skipComponents []string, configurationIDs []string) error
	// RestoreTables creates the tables and loads their data. A non-empty tableIDs
	// restricts the restore to those tables.
	RestoreTables(ctx context.Context, tableIDs []string) error
	// RestoreTableAliases creates alias tables whose source table was restored.
	RestoreTableAliases(ctx context.Context, tableIDs []string) error
	// RestoreTriggers recreates configuration triggers.
	RestoreTriggers(ctx context.Context) error
	// RestoreNotifications recreates notification subscriptions.
	RestoreNotifications(ctx context.Context) error
	// RestorePermanentFiles uploads the permanent files of the backup.
	RestorePermanentFiles(ctx context.Context) error
	// ListConfigsInBackup returns the configuration ids of a component present in the backup.
	ListConfigsInBackup(ctx context.Context, componentID string) ([]string, error)
}

// StorageAPI is the part of the Storage API used by Restore.
type StorageAPI interface {
	VerifyToken(ctx context.Context) (*storageapi.TokenInfo, error)
	CreateBucket(ctx context.Context, req storageapi.CreateBucketRequest) (*storageapi.Bucket, error)
	AddBucketMetadata(ctx context.Context, bucketID string, metadata []storageapi.Metadata) error
	AddBranchMetadata(ctx context.Context, metadata []storageapi.Metadata) error
	AddConfiguration(ctx context.Context, componentID string, cfg storageapi.Configuration) (*storageapi.Configuration, error)
	UpdateConfigurationState(ctx context.Context, componentID, configID string, state any) error
	AddConfigurationRow(ctx context.Context, componentID, configID string, row storageapi.ConfigurationRow) (*storageapi.ConfigurationRow, error)
	UpdateConfigurationRowState(ctx context.Context, componentID, configID, rowID string, state any) error
	AddConfigurationMetadata(ctx context.Context, componentID, configID string, metadata []storageapi.Metadata) error
	CreateTableDefinition(ctx context.Context, bucketID string, def storageapi.TableDefinition) (*storageapi.Table, error)
	CreateTableFromFile(ctx context.Context, bucketID, name string, fileID int64, primaryKey []string) (*storageapi.Table, error)
	ImportTable(ctx context.Context, tableID string, fileID int64) error
	CreateTableAlias(ctx context.Context, bucketID string, req storageapi.CreateAliasRequest) (*storageapi.Table, error)
	AddTableMetadata(ctx context.Context, tableID string, req storageapi.TableMetadataRequest) error
	UploadFile(ctx context.Context, req storageapi.UploadFileRequest, r io.Reader) (*storageapi.File, error)
	CreateToken(ctx context.Context, req storageapi.CreateTokenRequest) (*storageapi.Token, error)
	CreateTrigger(ctx context.Context, trigger storageapi.Trigger) (*storageapi.Trigger, error)
	CreateNotificationSubscription(ctx context.Context, sub storageapi.NotificationSubscription) (*storageapi.NotificationSubscription, error)
}

var _ StorageAPI = (*storageapi.Client)(nil)
