package storageapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// CreateTableDefinition creates a typed table in the bucket and waits for the
// asynchronous job to finish.
func (c *Client) CreateTableDefinition(ctx context.Context, bucketID string, def TableDefinition) (*Table, error) {
	var job Job
	if err := c.doJSON(ctx, http.MethodPost, "/buckets/"+bucketID+"/tables-definition", nil, def, &job); err != nil {
		return nil, err
	}
	finished, err := c.WaitForJob(ctx, &job)
	if err != nil {
		return nil, err
	}

	var table Table
	if err := json.Unmarshal(finished.Results, &table); err != nil {
		return nil, fmt.Errorf("failed to decode results of job %d: %w", finished.ID, err)
	}
	return &table, nil
}

type createTableRequest struct {
	Name       string `json:"name"`
	DataFileID int64  `json:"dataFileId"`
	PrimaryKey string `json:"primaryKey,omitempty"`
}

// CreateTableFromFile creates a table from a previously uploaded CSV file. The
// header of the file gives the columns.
func (c *Client) CreateTableFromFile(ctx context.Context, bucketID, name string, fileID int64, primaryKey []string) (*Table, error) {
	req := createTableRequest{Name: name, DataFileID: fileID}
	if len(primaryKey) > 0 {
		req.PrimaryKey = strings.Join(primaryKey, ",")
	}

	var job Job
	if err := c.doJSON(ctx, http.MethodPost, "/buckets/"+bucketID+"/tables-async", nil, req, &job); err != nil {
		return nil, err
	}
	finished, err := c.WaitForJob(ctx, &job)
	if err != nil {
		return nil, err
	}

	var table Table
	if err := json.Unmarshal(finished.Results, &table); err != nil {
		return nil, fmt.Errorf("failed to decode results of job %d: %w", finished.ID, err)
	}
	return &table, nil
}

type importRequest struct {
	DataFileID  int64 `json:"dataFileId"`
	Incremental bool  `json:"incremental"`
}

// ImportTable loads a previously uploaded CSV file into an existing table and
// waits for the import job.
func (c *Client) ImportTable(ctx context.Context, tableID string, fileID int64) error {
	var job Job
	req := importRequest{DataFileID: fileID}
	if err := c.doJSON(ctx, http.MethodPost, "/tables/"+tableID+"/import-async", nil, req, &job); err != nil {
		return err
	}
	_, err := c.WaitForJob(ctx, &job)
	return err
}

// CreateTableAlias creates an alias of a table in the bucket.
func (c *Client) CreateTableAlias(ctx context.Context, bucketID string, req CreateAliasRequest) (*Table, error) {
	var table Table
	if err := c.doJSON(ctx, http.MethodPost, "/buckets/"+bucketID+"/table-aliases", nil, req, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// AddTableMetadata stores table and column metadata.
func (c *Client) AddTableMetadata(ctx context.Context, tableID string, req TableMetadataRequest) error {
	if len(req.Metadata) == 0 && len(req.ColumnsMetadata) == 0 {
		return nil
	}
	if req.Provider == "" {
		req.Provider = metadataProvider
	}
	return c.doJSON(ctx, http.MethodPost, "/tables/"+tableID+"/metadata", nil, req, nil)
}
