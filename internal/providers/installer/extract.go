package installer

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// ErrIllegalPath is returned for archive entries that resolve outside the destination
var ErrIllegalPath = errors.New("archive entry escapes destination")

// extract unpacks archive into dest and returns the number of files written
func extract(ctx context.Context, archive, dest string, format Format) (int, error) {
	switch format {
	case FormatZip:
		return extractZip(ctx, archive, dest)
	case FormatTar, FormatTarGz, FormatTarZst:
		return extractTar(ctx, archive, dest, format)
	default:
		return 0, fmt.Errorf("unsupported archive format %q", format)
	}
}

func extractZip(ctx context.Context, archive, dest string) (int, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("open failed: %w", err)
	}
	defer reader.Close()

	files := 0
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		destPath, err := entryPath(dest, file.Name)
		if err != nil {
			return files, err
		}

		mode := file.Mode()
		switch {
		case file.FileInfo().IsDir():
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return files, err
			}
			continue
		case mode&os.ModeSymlink != 0:
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return files, fmt.Errorf("open %s: %w", file.Name, err)
		}
		err = writeEntry(ctx, destPath, rc, mode.Perm())
		rc.Close()
		if err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

func extractTar(ctx context.Context, archive, dest string, format Format) (int, error) {
	file, err := os.Open(archive)
	if err != nil {
		return 0, fmt.Errorf("open failed: %w", err)
	}
	defer file.Close()

	var tarReader *tar.Reader
	switch format {
	case FormatTarGz:
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return 0, fmt.Errorf("gzip failed: %w", err)
		}
		defer gzReader.Close()
		tarReader = tar.NewReader(gzReader)
	case FormatTarZst:
		zstdReader, err := zstd.NewReader(file)
		if err != nil {
			return 0, fmt.Errorf("zstd failed: %w", err)
		}
		defer zstdReader.Close()
		tarReader = tar.NewReader(zstdReader)
	default:
		tarReader = tar.NewReader(file)
	}

	files := 0
	for {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, fmt.Errorf("read archive: %w", err)
		}

		destPath, err := entryPath(dest, header.Name)
		if err != nil {
			return files, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return files, err
			}
		case tar.TypeReg:
			if err := writeEntry(ctx, destPath, tarReader, os.FileMode(header.Mode).Perm()); err != nil {
				return files, err
			}
			files++
		}
	}
}

// entryPath joins name under dest and rejects anything that climbs out
func entryPath(dest, name string) (string, error) {
	root := filepath.Clean(dest)
	destPath := filepath.Join(root, name)
	if destPath == root {
		return destPath, nil
	}
	if !strings.HasPrefix(destPath, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}
	return destPath, nil
}

// writeEntry copies r into path, checking ctx between blocks
func writeEntry(ctx context.Context, path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0600)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, &ctxReader{ctx: ctx, r: r})
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(path), copyErr)
	}
	return closeErr
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
