package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Within resolves an archive-relative name inside dir. It reports false for names
// that are absolute or would escape dir.
func Within(dir, name string) (string, bool) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || path.IsAbs(clean) || filepath.IsAbs(name) || strings.HasPrefix(clean, "../") {
		return "", false
	}
	if len(clean) > 1 && clean[1] == ':' {
		return "", false
	}
	return filepath.Join(dir, filepath.FromSlash(clean)), true
}

// Unzip extracts the archive at src into dest. Entries that would land outside dest are
// not extracted and are returned as skipped. The context is checked before every entry.
func Unzip(ctx context.Context, src, dest string) (skipped []string, err error) {
	fs := API()

	file, err := fs.Open(src)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	archive, err := zip.NewReader(file, info.Size())
	if err != nil {
		return nil, err
	}

	if err := fs.MkdirAll(dest, os.ModePerm); err != nil {
		return nil, err
	}

	for _, entry := range archive.File {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}

		target, ok := Within(dest, entry.Name)
		if !ok {
			skipped = append(skipped, entry.Name)
			continue
		}

		if entry.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, os.ModePerm); err != nil {
				return skipped, err
			}
			continue
		}

		if err := extract(entry, target); err != nil {
			return skipped, fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}

	return skipped, nil
}

func extract(entry *zip.File, target string) error {
	fs := API()
	if err := fs.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return err
	}

	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, entry.Mode().Perm()|0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
