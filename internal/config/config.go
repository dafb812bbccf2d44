package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"keboola.io/project-restore/internal/apperrors"
)

// BackendKind identifies the object storage holding the backup.
type BackendKind string

const (
	BackendS3  BackendKind = "s3"
	BackendABS BackendKind = "abs"
	BackendGCS BackendKind = "gcs"
)

// Config matches the structure of the component configuration file.
type Config struct {
	Parameters Parameters `json:"parameters" yaml:"parameters"`
}

// Parameters holds the operator inputs. Boolean toggles are pointers so that
// an absent key can be told apart from an explicit false; use the accessor
// methods to read them.
type Parameters struct {
	S3  *S3  `json:"s3,omitempty" yaml:"s3,omitempty"`
	ABS *ABS `json:"abs,omitempty" yaml:"abs,omitempty"`
	GCS *GCS `json:"gcs,omitempty" yaml:"gcs,omitempty"`

	UseDefaultBackend      *bool `json:"useDefaultBackend,omitempty" yaml:"useDefaultBackend,omitempty"`
	RestoreConfigs         *bool `json:"restoreConfigs,omitempty" yaml:"restoreConfigs,omitempty"`
	RestorePermanentFiles  *bool `json:"restorePermanentFiles,omitempty" yaml:"restorePermanentFiles,omitempty"`
	RestoreTriggers        *bool `json:"restoreTriggers,omitempty" yaml:"restoreTriggers,omitempty"`
	RestoreNotifications   *bool `json:"restoreNotifications,omitempty" yaml:"restoreNotifications,omitempty"`
	RestoreBuckets         *bool `json:"restoreBuckets,omitempty" yaml:"restoreBuckets,omitempty"`
	RestoreTables          *bool `json:"restoreTables,omitempty" yaml:"restoreTables,omitempty"`
	RestoreProjectMetadata *bool `json:"restoreProjectMetadata,omitempty" yaml:"restoreProjectMetadata,omitempty"`
	DryRun                 *bool `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	CheckEmptyProject      *bool `json:"checkEmptyProject,omitempty" yaml:"checkEmptyProject,omitempty"`

	// Selective restore. Empty means everything in the backup.
	ConfigurationsToMigrate []string `json:"configurationsToMigrate,omitempty" yaml:"configurationsToMigrate,omitempty"`
	TablesToMigrate         []string `json:"tablesToMigrate,omitempty" yaml:"tablesToMigrate,omitempty"`

	Encryption *Encryption `json:"encryption,omitempty" yaml:"encryption,omitempty"`
}

type S3 struct {
	BackupURI       string `json:"backupUri" yaml:"backupUri"`
	AccessKeyID     string `json:"accessKeyId" yaml:"accessKeyId"`
	SecretAccessKey string `json:"#secretAccessKey" yaml:"#secretAccessKey"`
	SessionToken    string `json:"#sessionToken" yaml:"#sessionToken"`
}

type ABS struct {
	Container        string `json:"container" yaml:"container"`
	ConnectionString string `json:"#connectionString" yaml:"#connectionString"`
}

type GCS struct {
	BackupURI   string          `json:"backupUri" yaml:"backupUri"`
	Bucket      string          `json:"bucket" yaml:"bucket"`
	// ProjectID is accepted for compatibility with existing configurations.
	// Reading a backup does not need it.
	ProjectID   string          `json:"projectId" yaml:"projectId"`
	Credentials *GCSCredentials `json:"credentials" yaml:"credentials"`
}

// GCSCredentials is a short-lived OAuth access token. The token may be
// supplied either encrypted (#accessToken) or plain (accessToken).
type GCSCredentials struct {
	AccessToken          string `json:"accessToken,omitempty" yaml:"accessToken,omitempty"`
	EncryptedAccessToken string `json:"#accessToken,omitempty" yaml:"#accessToken,omitempty"`
	ExpiresIn            int64  `json:"expiresIn" yaml:"expiresIn"`
	TokenType            string `json:"tokenType" yaml:"tokenType"`
}

// Token returns whichever access token variant is set.
func (c *GCSCredentials) Token() string {
	if c.EncryptedAccessToken != "" {
		return c.EncryptedAccessToken
	}
	return c.AccessToken
}

// Encryption configures decryption of age-encrypted backup objects.
type Encryption struct {
	PrivateKey string `json:"#privateKey" yaml:"#privateKey"`
}

var configFileNames = []string{"config.json", "config.yml", "config.yaml"}

// Load finds, reads, parses and validates the configuration file in dataDir.
func Load(fs afero.Fs, dataDir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dataDir, name)
		data, err := afero.ReadFile(fs, path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
		}

		cfg, err := Parse(data, filepath.Ext(name) != ".json")
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return nil, apperrors.Configuration("Config file not found in %s", dataDir)
}

// Parse decodes a JSON (or YAML when asYAML is set) configuration document and validates it.
// The platform writes its own keys (storage, image_parameters, action, authorization) next to
// parameters, so only unknown keys inside parameters are rejected.
func Parse(data []byte, asYAML bool) (*Config, error) {
	var cfg Config
	var err error
	if asYAML {
		err = decodeYAMLParameters(data, &cfg.Parameters)
	} else {
		err = decodeJSONParameters(data, &cfg.Parameters)
	}
	if err != nil {
		return nil, apperrors.Configuration("Invalid configuration: %s", err)
	}

	if err := cfg.Parameters.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeJSONParameters(data []byte, p *Parameters) error {
	var doc struct {
		Parameters json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Parameters) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc.Parameters))
	dec.DisallowUnknownFields()
	return dec.Decode(p)
}

func decodeYAMLParameters(data []byte, p *Parameters) error {
	var doc struct {
		Parameters yaml.Node `yaml:"parameters"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Parameters.Kind == 0 {
		return nil
	}

	// Node.Decode cannot reject unknown keys, so the section is decoded again on its own.
	raw, err := yaml.Marshal(&doc.Parameters)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(p)
}

// BackendKind returns the single configured backend.
func (p *Parameters) BackendKind() (BackendKind, error) {
	var kinds []BackendKind
	if p.S3 != nil {
		kinds = append(kinds, BackendS3)
	}
	if p.ABS != nil {
		kinds = append(kinds, BackendABS)
	}
	if p.GCS != nil {
		kinds = append(kinds, BackendGCS)
	}

	switch len(kinds) {
	case 0:
		return "", apperrors.Configuration("ABS, S3 or GCS must be configured.")
	case 1:
		return kinds[0], nil
	default:
		return "", apperrors.Configuration("Only one of ABS, S3 or GCS can be configured.")
	}
}

// Validate checks the backend invariant and the required keys of the selected backend.
func (p *Parameters) Validate() error {
	kind, err := p.BackendKind()
	if err != nil {
		return err
	}

	switch kind {
	case BackendS3:
		if err := required("root.parameters.s3",
			field{"backupUri", p.S3.BackupURI},
			field{"accessKeyId", p.S3.AccessKeyID},
			field{"#secretAccessKey", p.S3.SecretAccessKey},
			field{"#sessionToken", p.S3.SessionToken},
		); err != nil {
			return err
		}
	case BackendABS:
		if err := required("root.parameters.abs",
			field{"container", p.ABS.Container},
			field{"#connectionString", p.ABS.ConnectionString},
		); err != nil {
			return err
		}
	case BackendGCS:
		if err := required("root.parameters.gcs",
			field{"backupUri", p.GCS.BackupURI},
			field{"bucket", p.GCS.Bucket},
			field{"projectId", p.GCS.ProjectID},
		); err != nil {
			return err
		}
		if p.GCS.Credentials == nil {
			return missing("credentials", "root.parameters.gcs")
		}
		if p.GCS.Credentials.Token() == "" {
			return missing("accessToken", "root.parameters.gcs.credentials")
		}
		if p.GCS.Credentials.TokenType == "" {
			return missing("tokenType", "root.parameters.gcs.credentials")
		}
	}

	if p.Encryption != nil && p.Encryption.PrivateKey == "" {
		return missing("#privateKey", "root.parameters.encryption")
	}
	return nil
}

type field struct {
	name  string
	value string
}

func required(path string, fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return missing(f.name, path)
		}
	}
	return nil
}

func missing(name, path string) error {
	return apperrors.Configuration("The child config %q under %q must be configured.", name, path)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (p *Parameters) ShouldUseDefaultBackend() bool      { return boolOr(p.UseDefaultBackend, false) }
func (p *Parameters) ShouldRestoreConfigs() bool         { return boolOr(p.RestoreConfigs, true) }
func (p *Parameters) ShouldRestorePermanentFiles() bool  { return boolOr(p.RestorePermanentFiles, true) }
func (p *Parameters) ShouldRestoreTriggers() bool        { return boolOr(p.RestoreTriggers, true) }
func (p *Parameters) ShouldRestoreNotifications() bool   { return boolOr(p.RestoreNotifications, true) }
func (p *Parameters) ShouldRestoreBuckets() bool         { return boolOr(p.RestoreBuckets, true) }
func (p *Parameters) ShouldRestoreTables() bool          { return boolOr(p.RestoreTables, true) }
func (p *Parameters) ShouldRestoreProjectMetadata() bool { return boolOr(p.RestoreProjectMetadata, true) }
func (p *Parameters) IsDryRun() bool                     { return boolOr(p.DryRun, false) }
func (p *Parameters) ShouldCheckEmptyProject() bool      { return boolOr(p.CheckEmptyProject, true) }
