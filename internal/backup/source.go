package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"keboola.io/project-restore/internal/apperrors"
	"keboola.io/project-restore/internal/config"
	"keboola.io/project-restore/internal/crypto"
	"keboola.io/project-restore/internal/location"
)

// ErrNotExist is wrapped by errors returned from Source.Open for objects that are not in the backup.
var ErrNotExist = errors.New("object does not exist")

// Source defines the interface for reading objects of a project backup.
type Source interface {
	// Open returns the content of the named object, relative to the backup root.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Identifier returns a string identifying the backup location.
	Identifier() string
}

// Error is returned by sources when an object cannot be read.
type Error struct {
	Source string
	Name   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to read %s from %s: %v", e.Name, e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether err means the object is missing from the backup.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// newGCSSource is replaced in tests.
var newGCSSource = func(ctx context.Context, cfg *config.GCS) (Source, error) {
	return NewGCSSource(ctx, cfg)
}

// NewSourceFromConfig creates the Source of the single configured backend. No
// network call is made; configuration problems are reported as configuration errors.
func NewSourceFromConfig(ctx context.Context, p *config.Parameters) (Source, error) {
	kind, err := p.BackendKind()
	if err != nil {
		return nil, err
	}

	var src Source
	switch kind {
	case config.BackendS3:
		loc, err := location.RequireRegion(p.S3.BackupURI)
		if err != nil {
			return nil, apperrors.Configuration("Parameter \"backupUri\" is not valid: %s", err)
		}
		src = NewS3Source(loc, p.S3.AccessKeyID, p.S3.SecretAccessKey, p.S3.SessionToken)

	case config.BackendABS:
		src, err = NewAzureSource(p.ABS.ConnectionString, p.ABS.Container)
		if err != nil {
			return nil, apperrors.Configuration("Parameter \"#connectionString\" is not valid: %s", err)
		}

	case config.BackendGCS:
		src, err = newGCSSource(ctx, p.GCS)
		if err != nil {
			return nil, apperrors.Configuration("Parameter \"gcs\" is not valid: %s", err)
		}
	}

	if p.Encryption != nil {
		decryptor, err := crypto.NewAgeDecryptor(p.Encryption.PrivateKey)
		if err != nil {
			return nil, apperrors.Configuration("Parameter \"#privateKey\" is not valid: %s", err)
		}
		src = NewDecryptingSource(src, decryptor)
	}

	return src, nil
}

// DecryptingSource decrypts every object read from the wrapped Source.
type DecryptingSource struct {
	Source
	decryptor *crypto.AgeDecryptor
}

// NewDecryptingSource wraps src so that objects are age-decrypted on read.
func NewDecryptingSource(src Source, decryptor *crypto.AgeDecryptor) *DecryptingSource {
	return &DecryptingSource{Source: src, decryptor: decryptor}
}

// Open opens the object and wraps it with decryption.
func (s *DecryptingSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.Source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	decrypted, err := s.decryptor.NewDecryptReadCloser(rc)
	if err != nil {
		rc.Close()
		return nil, &Error{Source: s.Identifier(), Name: name, Err: err}
	}
	return decrypted, nil
}
