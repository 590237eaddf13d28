// Package output writes the exclusion directive to disk and packs it into
// the distributable archive.
package output

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinytelemetry/rsvexclude/internal/archive"
	"github.com/tinytelemetry/rsvexclude/internal/model"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// ErrFilesystem wraps directory and file failures while packaging.
var ErrFilesystem = errors.New("output: filesystem error")

// Result describes what Package produced.
type Result struct {
	OutputDir   string
	ArchivePath string
	// IniPath is where the loose directive was written. After a successful
	// run it no longer exists.
	IniPath string
}

// Packager turns directive text into an archive inside an output directory.
type Packager struct {
	archiver archive.Archiver
}

// NewPackager returns a packager that delegates compression to a.
func NewPackager(a archive.Archiver) (*Packager, error) {
	if a == nil {
		return nil, errors.New("output: nil archiver")
	}
	return &Packager{archiver: a}, nil
}

// Package resets outputDir, writes the directive file, archives it beside
// itself, and removes the loose file. outputDir must be named
// model.OutputFolder; anything else is refused before it is touched. On
// failure after the directive was written, the file is left in place.
func (p *Packager) Package(ctx context.Context, directiveText, outputDir string) (Result, error) {
	if strings.TrimSpace(outputDir) == "" {
		return Result{}, fmt.Errorf("%w: output directory is empty", ErrFilesystem)
	}
	if base := filepath.Base(filepath.Clean(outputDir)); base != model.OutputFolder {
		return Result{}, fmt.Errorf("%w: refusing to reset %s: not a %s directory", ErrFilesystem, outputDir, model.OutputFolder)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("output: %w", err)
	}
	res := Result{
		OutputDir:   outputDir,
		IniPath:     filepath.Join(outputDir, model.IniFileName),
		ArchivePath: filepath.Join(outputDir, model.ArchiveBaseName+p.archiver.Ext()),
	}

	if err := resetDir(outputDir); err != nil {
		return res, err
	}

	if err := writeFileAtomic(res.IniPath, []byte(directiveText)); err != nil {
		return res, err
	}
	log.Printf("output: wrote %s (%d bytes)", res.IniPath, len(directiveText))

	if err := p.archiver.Pack(ctx, res.IniPath, res.ArchivePath); err != nil {
		if !errors.Is(err, archive.ErrArchiveFailed) {
			err = fmt.Errorf("%w: %w", archive.ErrArchiveFailed, err)
		}
		return res, err
	}
	log.Printf("output: packed %s with %s", res.ArchivePath, p.archiver.Name())

	if err := os.Remove(res.IniPath); err != nil {
		return res, fmt.Errorf("%w: remove loose ini: %w", ErrFilesystem, err)
	}
	return res, nil
}

func resetDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		log.Printf("output: removing existing %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("%w: remove %s: %w", ErrFilesystem, dir, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", ErrFilesystem, dir, err)
	}
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrFilesystem, dir, err)
	}
	return nil
}

// writeFileAtomic writes through a synced temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, defaultFileMode); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrFilesystem, tmp, err)
	}

	f, err := os.OpenFile(tmp, os.O_RDWR, defaultFileMode)
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: open %s: %w", ErrFilesystem, tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: sync %s: %w", ErrFilesystem, tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: close %s: %w", ErrFilesystem, tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %w", ErrFilesystem, path, err)
	}
	return nil
}
