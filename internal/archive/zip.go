package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Zip writes a deflate-compressed zip without any external tool.
type Zip struct{}

func (Zip) Name() string { return "zip" }
func (Zip) Ext() string  { return ".zip" }

// Pack stores srcPath under its base name. A partially written archive is
// removed on failure.
func (z Zip) Pack(ctx context.Context, srcPath, archivePath string) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: open source: %w", ErrArchiveFailed, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat source: %w", ErrArchiveFailed, err)
	}

	dst, err := os.OpenFile(archivePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: create archive: %w", ErrArchiveFailed, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close archive: %w", ErrArchiveFailed, cerr)
		}
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()

	zw := zip.NewWriter(dst)
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("%w: header: %w", ErrArchiveFailed, err)
	}
	hdr.Name = filepath.Base(srcPath)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("%w: add entry: %w", ErrArchiveFailed, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("%w: write entry: %w", ErrArchiveFailed, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finish archive: %w", ErrArchiveFailed, err)
	}
	return nil
}
