package storageapi

import "encoding/json"

// Metadata is a single key/value metadata entry of a bucket, table, column,
// configuration or branch.
type Metadata struct {
	ID       string `json:"id,omitempty"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Provider string `json:"provider,omitempty"`
}

// Bucket is a Storage bucket.
type Bucket struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Stage       string `json:"stage"`
	Description string `json:"description,omitempty"`
	Backend     string `json:"backend,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// CreateBucketRequest is the payload of CreateBucket.
type CreateBucketRequest struct {
	Name        string `json:"name"`
	Stage       string `json:"stage"`
	Description string `json:"description,omitempty"`
	Backend     string `json:"backend,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Component is a component with its configurations, as listed by ListComponents.
type Component struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name,omitempty"`
	Type           string                 `json:"type,omitempty"`
	Configurations []ConfigurationSummary `json:"configurations"`
}

// ConfigurationSummary identifies a configuration of a component.
type ConfigurationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Configuration is a component configuration as created through the API.
type Configuration struct {
	ID                string          `json:"configurationId,omitempty"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Configuration     json.RawMessage `json:"configuration,omitempty"`
	ChangeDescription string          `json:"changeDescription,omitempty"`
	IsDisabled        bool            `json:"isDisabled,omitempty"`
}

// ConfigurationRow is a row of a configuration.
type ConfigurationRow struct {
	ID                string          `json:"rowId,omitempty"`
	Name              string          `json:"name,omitempty"`
	Description       string          `json:"description,omitempty"`
	Configuration     json.RawMessage `json:"configuration,omitempty"`
	ChangeDescription string          `json:"changeDescription,omitempty"`
	IsDisabled        bool            `json:"isDisabled,omitempty"`
}

// Column is a column of a typed table definition.
type Column struct {
	Name       string            `json:"name"`
	Definition *ColumnDefinition `json:"definition,omitempty"`
	BaseType   string            `json:"basetype,omitempty"`
}

// ColumnDefinition is the native type of a column.
type ColumnDefinition struct {
	Type     string `json:"type"`
	Length   string `json:"length,omitempty"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// TableDefinition is the payload of CreateTableDefinition.
type TableDefinition struct {
	Name             string   `json:"name"`
	PrimaryKeysNames []string `json:"primaryKeysNames"`
	Columns          []Column `json:"columns"`
}

// Table is a Storage table.
type Table struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PrimaryKey []string `json:"primaryKey,omitempty"`
	Columns    []string `json:"columns,omitempty"`
	IsAlias    bool     `json:"isAlias,omitempty"`
}

// AliasFilter restricts the rows of an alias table.
type AliasFilter struct {
	Column   string   `json:"column"`
	Operator string   `json:"operator,omitempty"`
	Values   []string `json:"values"`
}

// CreateAliasRequest is the payload of CreateTableAlias.
type CreateAliasRequest struct {
	SourceTable          string       `json:"sourceTable"`
	Name                 string       `json:"name"`
	AliasFilter          *AliasFilter `json:"aliasFilter,omitempty"`
	AliasColumnsAutoSync *bool        `json:"aliasColumnsAutoSync,omitempty"`
	AliasColumns         []string     `json:"aliasColumns,omitempty"`
}

// TableMetadataRequest is the payload of AddTableMetadata.
type TableMetadataRequest struct {
	Provider        string                `json:"provider"`
	Metadata        []Metadata            `json:"metadata,omitempty"`
	ColumnsMetadata map[string][]Metadata `json:"columnsMetadata,omitempty"`
}

// File is an uploaded Storage file.
type File struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	IsPermanent bool     `json:"isPermanent"`
	Tags        []string `json:"tags,omitempty"`
}

// UploadFileRequest describes a file to upload.
type UploadFileRequest struct {
	Name        string
	IsPermanent bool
	IsSliced    bool
	Tags        []string
}

// Token is a Storage API token.
type Token struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// TokenInfo is the detail of the token used by the client.
type TokenInfo struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Owner       ProjectOwner `json:"owner"`
}

// ProjectOwner describes the project a token belongs to.
type ProjectOwner struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	DefaultBackend string `json:"defaultBackend"`
	HasSnowflake   bool   `json:"hasSnowflake"`
	HasRedshift    bool   `json:"hasRedshift"`
	HasSynapse     bool   `json:"hasSynapse"`
	HasExasol      bool   `json:"hasExasol"`
	HasTeradata    bool   `json:"hasTeradata"`
	HasBigquery    bool   `json:"hasBigquery"`
}

// SupportsBackend reports whether buckets of the backend can be created in the project.
func (o ProjectOwner) SupportsBackend(backend string) bool {
	switch backend {
	case "snowflake":
		return o.HasSnowflake
	case "redshift":
		return o.HasRedshift
	case "synapse":
		return o.HasSynapse
	case "exasol":
		return o.HasExasol
	case "teradata":
		return o.HasTeradata
	case "bigquery":
		return o.HasBigquery
	}
	return backend == o.DefaultBackend
}

// CreateTokenRequest is the payload of CreateToken.
type CreateTokenRequest struct {
	Description      string   `json:"description"`
	CanManageBuckets bool     `json:"canManageBuckets"`
	ComponentAccess  []string `json:"componentAccess,omitempty"`
}

// Trigger starts a configuration when its tables are updated.
type Trigger struct {
	ID                    string   `json:"id,omitempty"`
	RunWithTokenID        string   `json:"runWithTokenId"`
	Component             string   `json:"component"`
	ConfigurationID       string   `json:"configurationId"`
	CoolDownPeriodMinutes int      `json:"coolDownPeriodMinutes"`
	TableIDs              []string `json:"tableIds"`
}

// Job is an asynchronous Storage job.
type Job struct {
	ID      int64           `json:"id"`
	Status  string          `json:"status"`
	URL     string          `json:"url,omitempty"`
	Results json.RawMessage `json:"results,omitempty"`
	Error   *JobError       `json:"error,omitempty"`
}

// JobError is the failure detail of a finished job.
type JobError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	ExceptionID string `json:"exceptionId"`
}

// Job states.
const (
	JobStatusWaiting    = "waiting"
	JobStatusProcessing = "processing"
	JobStatusSuccess    = "success"
	JobStatusError      = "error"
)

// Finished reports whether the job is no longer running.
func (j *Job) Finished() bool {
	return j.Status == JobStatusSuccess || j.Status == JobStatusError
}

// Service is an entry of the stack service discovery index.
type Service struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NotificationSubscription is a notification service project subscription.
type NotificationSubscription struct {
	ID        string                `json:"id,omitempty"`
	Event     string                `json:"event"`
	Filters   []NotificationFilter  `json:"filters"`
	Recipient NotificationRecipient `json:"recipient"`
}

// NotificationFilter narrows down the events of a subscription.
type NotificationFilter struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Operator string `json:"operator,omitempty"`
}

// NotificationRecipient is where notifications are delivered.
type NotificationRecipient struct {
	Channel string `json:"channel"`
	Address string `json:"address"`
}
