package restore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"keboola.io/project-restore/internal/backup"
	"keboola.io/project-restore/internal/storageapi"
)

// RestoreTables creates the tables of restored buckets and imports their data.
// Aliases are left to RestoreTableAliases.
func (r *Restore) RestoreTables(ctx context.Context, tableIDs []string) error {
	tables, err := loadManifest[BackupTable](ctx, r, tablesManifest)
	if err != nil {
		return err
	}
	buckets, err := r.bucketsByID(ctx)
	if err != nil {
		return err
	}

	for _, t := range tables {
		if t.IsAlias || !selected(tableIDs, t.ID) {
			continue
		}
		b, ok := buckets[t.Bucket.ID]
		if !ok || b.SourceBucket != nil {
			r.log.Infof("Skipping table %s, its bucket is not restored", t.ID)
			continue
		}

		if r.report("Restore table %s", t.ID) {
			r.restoredTables[t.ID] = true
			continue
		}
		r.log.Infof("Restoring table %s", t.ID)
		if err := r.restoreTable(ctx, b, t); err != nil {
			return err
		}
		r.restoredTables[t.ID] = true
	}
	return nil
}

func (r *Restore) restoreTable(ctx context.Context, b BackupBucket, t BackupTable) error {
	data, err := r.source.Open(ctx, TableDataObject(b.Stage, b.Name, t.Name))
	if err != nil && !backup.IsNotExist(err) {
		return err
	}
	if data != nil {
		defer data.Close()
	}

	var tableID string
	switch {
	case t.Definition != nil:
		created, err := r.api.CreateTableDefinition(ctx, t.Bucket.ID, storageapi.TableDefinition{
			Name:             t.Name,
			PrimaryKeysNames: t.Definition.PrimaryKeysNames,
			Columns:          t.Definition.Columns,
		})
		if err != nil {
			return err
		}
		tableID = created.ID
		if data != nil {
			file, err := r.api.UploadFile(ctx, storageapi.UploadFileRequest{Name: t.Name + ".csv.gz"}, data)
			if err != nil {
				return err
			}
			if err := r.api.ImportTable(ctx, tableID, file.ID); err != nil {
				return err
			}
		}

	default:
		req := storageapi.UploadFileRequest{Name: t.Name + ".csv.gz"}
		var content io.Reader = data
		if data == nil {
			header, err := csvHeader(t.Columns)
			if err != nil {
				return fmt.Errorf("failed to restore table %s: %w", t.ID, err)
			}
			req.Name = t.Name + ".csv"
			content = header
		}
		file, err := r.api.UploadFile(ctx, req, content)
		if err != nil {
			return err
		}
		created, err := r.api.CreateTableFromFile(ctx, t.Bucket.ID, t.Name, file.ID, t.PrimaryKey)
		if err != nil {
			return err
		}
		tableID = created.ID
	}

	return r.api.AddTableMetadata(ctx, tableID, storageapi.TableMetadataRequest{
		Metadata:        t.Metadata,
		ColumnsMetadata: t.ColumnMetadata,
	})
}

// RestoreTableAliases creates aliases of tables restored by RestoreTables.
func (r *Restore) RestoreTableAliases(ctx context.Context, tableIDs []string) error {
	tables, err := loadManifest[BackupTable](ctx, r, tablesManifest)
	if err != nil {
		return err
	}

	for _, t := range tables {
		if !t.IsAlias || !selected(tableIDs, t.ID) {
			continue
		}
		if t.SourceTable == nil || !r.restoredTables[t.SourceTable.ID] {
			r.log.Infof("Skipping alias %s, its source table is not restored", t.ID)
			continue
		}

		if r.report("Restore alias %s", t.ID) {
			continue
		}
		r.log.Infof("Restoring alias %s", t.ID)

		req := storageapi.CreateAliasRequest{
			SourceTable:          t.SourceTable.ID,
			Name:                 t.Name,
			AliasFilter:          t.AliasFilter,
			AliasColumnsAutoSync: t.AliasColumnsAutoSync,
		}
		if t.AliasColumnsAutoSync != nil && !*t.AliasColumnsAutoSync {
			req.AliasColumns = t.Columns
		}
		created, err := r.api.CreateTableAlias(ctx, t.Bucket.ID, req)
		if err != nil {
			return err
		}
		if err := r.api.AddTableMetadata(ctx, created.ID, storageapi.TableMetadataRequest{Metadata: t.Metadata}); err != nil {
			return err
		}
	}
	return nil
}

func selected(ids []string, id string) bool {
	return len(ids) == 0 || slices.Contains(ids, id)
}

func csvHeader(columns []string) (io.Reader, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns in backup")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	w.Flush()
	return &buf, w.Error()
}
