package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FSSource implements Source for a backup unpacked into a directory.
type FSSource struct {
	FS   afero.Fs
	Root string
}

// Open opens the file under the root directory.
func (s *FSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	file, err := s.FS.Open(filepath.Join(s.Root, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ErrNotExist, err)
		}
		return nil, &Error{Source: s.Identifier(), Name: name, Err: err}
	}
	return file, nil
}

// Identifier returns the backup directory for traceability.
func (s *FSSource) Identifier() string {
	return fmt.Sprintf("local:%s", s.Root)
}
