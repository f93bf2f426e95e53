package core

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pierrec/lz4"
)

// Archive formats understood by the Extractor
const (
	FormatZip    = "zip"
	Format7z     = "7z"
	FormatRar    = "rar"
	FormatTarLZ4 = "tar.lz4"
)

// Extractor unpacks mod archives and save snapshots
type Extractor struct{}

// NewExtractor creates a new Extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract extracts an archive to the destination directory.
// .zip and .tar.lz4 are handled natively, .7z and .rar via the system 7z command.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	format := e.DetectFormat(archivePath)
	if format == "" {
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	switch format {
	case FormatZip:
		return e.extractZip(archivePath, destDir)
	case FormatTarLZ4:
		return e.extractTarLZ4(archivePath, destDir)
	default:
		return e.extract7z(ctx, archivePath, destDir)
	}
}

// CanExtract returns true if the extractor can handle the given filename
func (e *Extractor) CanExtract(filename string) bool {
	return e.DetectFormat(filename) != ""
}

// DetectFormat returns the archive format based on filename extension
func (e *Extractor) DetectFormat(filename string) string {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".tar.lz4") {
		return FormatTarLZ4
	}
	switch filepath.Ext(lower) {
	case ".zip":
		return FormatZip
	case ".7z":
		return Format7z
	case ".rar":
		return FormatRar
	default:
		return ""
	}
}

func (e *Extractor) extractZip(archivePath, destDir string) (err error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing zip: %w", cerr)
		}
	}()

	for _, f := range r.File {
		destPath, err := sanitizePath(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", f.Name, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening file %s in archive: %w", f.Name, err)
		}
		err = writeEntry(destPath, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) extractTarLZ4(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	tr := tar.NewReader(lz4.NewReader(f))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		destPath, err := sanitizePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeEntry(destPath, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		}
	}
}

func writeEntry(destPath string, r io.Reader, mode os.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", destPath, err)
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0200)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", destPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing file %s: %w", destPath, cerr)
		}
	}()

	if _, err = io.Copy(out, r); err != nil {
		return fmt.Errorf("writing file %s: %w", destPath, err)
	}
	return nil
}

// sanitizePath keeps an archive entry inside destDir, rejecting entries like
// "../../etc/passwd".
func sanitizePath(destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Clean(name))
	root := filepath.Clean(destDir)

	if destPath != root && !strings.HasPrefix(destPath, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal detected: %s", name)
	}
	return destPath, nil
}

// extract7zTimeout bounds the system 7z command on corrupted archives
const extract7zTimeout = 5 * time.Minute

func (e *Extractor) extract7z(ctx context.Context, archivePath, destDir string) error {
	if _, err := exec.LookPath("7z"); err != nil {
		return fmt.Errorf("7z command not found: install p7zip-full to extract .7z and .rar files")
	}

	ctx, cancel := context.WithTimeout(ctx, extract7zTimeout)
	defer cancel()

	// -o takes the directory without a space
	cmd := exec.CommandContext(ctx, "7z", "x", "-y", "-o"+destDir, archivePath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("7z extraction timed out after %v", extract7zTimeout)
		}
		return fmt.Errorf("7z extraction failed: %w\nOutput: %s", err, string(output))
	}

	return nil
}
