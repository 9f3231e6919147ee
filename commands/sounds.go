package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// FSSoundLibrary serves sounds from a filesystem directory, one file per
// sound name.
type FSSoundLibrary struct {
	fsys fs.FS
	ext  string
}

// NewFSSoundLibrary creates a library over fsys; ext is the file extension
// appended to sound names, such as ".opus".
func NewFSSoundLibrary(fsys fs.FS, ext string) *FSSoundLibrary {
	return &FSSoundLibrary{fsys: fsys, ext: ext}
}

// Open implements SoundLibrary. Names containing path separators are
// rejected so callers cannot escape the sound directory.
func (l *FSSoundLibrary) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) || !fs.ValidPath(name) {
		return nil, fmt.Errorf("open sound %q: %w", name, fs.ErrNotExist)
	}

	file, err := l.fsys.Open(name + l.ext)
	if err != nil {
		return nil, fmt.Errorf("open sound %q: %w", name, err)
	}

	return file, nil
}
