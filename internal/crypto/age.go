package crypto

import (
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// AgeDecryptor handles age-encrypted backup objects.
type AgeDecryptor struct {
	identities []age.Identity
}

// NewAgeDecryptor creates a decryptor from the text of an age identity file
// (one or more AGE-SECRET-KEY-1... lines, comments allowed).
func NewAgeDecryptor(privateKey string) (*AgeDecryptor, error) {
	identities, err := age.ParseIdentities(strings.NewReader(privateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse age identities: %w", err)
	}

	if len(identities) == 0 {
		return nil, fmt.Errorf("no age identities found")
	}

	return &AgeDecryptor{identities: identities}, nil
}

// Decrypt wraps the reader with age decryption.
func (d *AgeDecryptor) Decrypt(r io.Reader) (io.Reader, error) {
	decrypted, err := age.Decrypt(r, d.identities...)
	if err != nil {
		return nil, fmt.Errorf("age decryption failed: %w", err)
	}
	return decrypted, nil
}

// DecryptReadCloser wraps a ReadCloser with decryption, preserving the Close method.
type DecryptReadCloser struct {
	decrypted io.Reader
	original  io.ReadCloser
}

// NewDecryptReadCloser creates a decrypting ReadCloser.
func (d *AgeDecryptor) NewDecryptReadCloser(rc io.ReadCloser) (*DecryptReadCloser, error) {
	decrypted, err := d.Decrypt(rc)
	if err != nil {
		return nil, err
	}
	return &DecryptReadCloser{
		decrypted: decrypted,
		original:  rc,
	}, nil
}

func (d *DecryptReadCloser) Read(p []byte) (n int, err error) {
	return d.decrypted.Read(p)
}

func (d *DecryptReadCloser) Close() error {
	return d.original.Close()
}
