// Package archive packs a single file into a distributable archive.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrArchiveFailed wraps every failure reported by an archiver.
var ErrArchiveFailed = errors.New("archive: creation failed")

const (
	KindSevenZip = "7z"
	KindZip      = "zip"

	DefaultSevenZipBinary = "7z"
)

// Archiver packs srcPath into a new archive at archivePath.
type Archiver interface {
	Name() string
	Ext() string
	Pack(ctx context.Context, srcPath, archivePath string) error
}

// New returns the archiver for kind. binary overrides the 7-Zip executable
// and is ignored by the zip archiver.
func New(kind, binary string) (Archiver, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindSevenZip:
		return NewSevenZip(binary), nil
	case KindZip:
		return Zip{}, nil
	default:
		return nil, fmt.Errorf("archive: unknown archiver %q (want %s or %s)", kind, KindSevenZip, KindZip)
	}
}
