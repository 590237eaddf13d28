package archive

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// SevenZip packs files with the 7-Zip command line tool (`7z a`).
type SevenZip struct {
	binary string
}

// NewSevenZip returns an archiver that runs binary, or "7z" from PATH when
// binary is empty.
func NewSevenZip(binary string) *SevenZip {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultSevenZipBinary
	}
	return &SevenZip{binary: binary}
}

func (s *SevenZip) Name() string { return "7-Zip" }
func (s *SevenZip) Ext() string  { return ".7z" }

// Pack runs `7z a -t7z -y <archive> <src>` and waits for it to exit.
func (s *SevenZip) Pack(ctx context.Context, srcPath, archivePath string) error {
	bin, err := exec.LookPath(s.binary)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %w", ErrArchiveFailed, s.binary, err)
	}

	cmd := exec.CommandContext(ctx, bin, s.args(srcPath, archivePath)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrArchiveFailed, s.binary, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *SevenZip) args(srcPath, archivePath string) []string {
	return []string{"a", "-t7z", "-y", archivePath, srcPath}
}
