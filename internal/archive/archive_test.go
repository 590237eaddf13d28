package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestNewSelectsArchiver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		ext  string
	}{
		{"", ".7z"},
		{"7z", ".7z"},
		{" 7Z ", ".7z"},
		{"zip", ".zip"},
		{"ZIP", ".zip"},
	}
	for _, tt := range tests {
		a, err := New(tt.kind, "")
		if err != nil {
			t.Fatalf("New(%q): %v", tt.kind, err)
		}
		if a.Ext() != tt.ext {
			t.Errorf("New(%q).Ext() = %q, want %q", tt.kind, a.Ext(), tt.ext)
		}
	}

	if _, err := New("rar", ""); err == nil {
		t.Error("expected error for unknown archiver")
	}
}

func TestZipPackRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "zzzEasyNPC RSV Exclude_DISTR.ini")
	content := "Keyword = RSVignore|NONE|0x12345~Skyrim.esm"
	if err := os.WriteFile(src, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out.zip")

	if err := (Zip{}).Pack(context.Background(), src, dst); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	zr, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer zr.Close()

	if len(zr.File) != 1 {
		t.Fatalf("entries = %d, want 1", len(zr.File))
	}
	f := zr.File[0]
	if f.Name != "zzzEasyNPC RSV Exclude_DISTR.ini" {
		t.Errorf("entry name = %q", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if string(got) != content {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestZipPackMissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dst := filepath.Join(dir, "out.zip")
	err := (Zip{}).Pack(context.Background(), filepath.Join(dir, "missing.ini"), dst)
	if !errors.Is(err, ErrArchiveFailed) {
		t.Fatalf("err = %v, want ErrArchiveFailed", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Error("archive should not exist after a failed pack")
	}
}

func TestZipPackCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (Zip{}).Pack(ctx, "a", "b")
	if !errors.Is(err, ErrArchiveFailed) {
		t.Fatalf("err = %v, want ErrArchiveFailed", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want the cancellation kept in the chain", err)
	}
}

func TestZipPackKeepsFilesystemCause(t *testing.T) {
	t.Parallel()

	err := (Zip{}).Pack(context.Background(), filepath.Join(t.TempDir(), "absent.ini"), filepath.Join(t.TempDir(), "a.zip"))
	if !errors.Is(err, ErrArchiveFailed) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrArchiveFailed wrapping os.ErrNotExist", err)
	}
}

func TestSevenZipMissingBinary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "a.ini")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewSevenZip(filepath.Join(dir, "no-such-7z"))
	err := s.Pack(context.Background(), src, filepath.Join(dir, "a.7z"))
	if !errors.Is(err, ErrArchiveFailed) {
		t.Fatalf("err = %v, want ErrArchiveFailed", err)
	}
	if !errors.Is(err, exec.ErrNotFound) && !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want the lookup failure kept in the chain", err)
	}
}

func TestSevenZipArgs(t *testing.T) {
	t.Parallel()

	s := NewSevenZip("")
	if s.binary != "7z" {
		t.Errorf("binary = %q, want 7z", s.binary)
	}
	got := s.args("in.ini", "out.7z")
	want := []string{"a", "-t7z", "-y", "out.7z", "in.ini"}
	if len(got) != len(want) {
		t.Fatalf("args = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSevenZipNonZeroExit(t *testing.T) {
	t.Parallel()

	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	dir := t.TempDir()
	s := NewSevenZip(falseBin)
	err = s.Pack(context.Background(), filepath.Join(dir, "a.ini"), filepath.Join(dir, "a.7z"))
	if !errors.Is(err, ErrArchiveFailed) {
		t.Fatalf("err = %v, want ErrArchiveFailed", err)
	}
}
