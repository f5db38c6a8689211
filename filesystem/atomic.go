package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteAtomic writes data next to path under a unique temporary name and renames it into place.
// Readers observe either the previous content or the new content, never a partial write.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	fs := API()

	if err := fs.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := fs.WriteFile(tmp, data, perm); err != nil {
		_ = fs.Remove(tmp)
		return err
	}

	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return err
	}

	return nil
}

// Exists reports whether path refers to an existing regular file.
func Exists(path string) bool {
	info, err := API().Stat(path)
	return err == nil && !info.IsDir()
}

// Move renames src to dst, replacing dst. When a rename is not possible, e.g. across
// devices, the file is copied and the source removed.
func Move(src, dst string) error {
	fs := API()

	if err := fs.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	if Exists(dst) {
		if err := fs.Remove(dst); err != nil {
			return err
		}
	}
	if err := fs.Rename(src, dst); err == nil {
		return nil
	}

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = fs.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = fs.Remove(dst)
		return err
	}

	return fs.Remove(src)
}
