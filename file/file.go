package file

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mensylisir/xmrecipe/common"
)

// PathExists checks if a path exists. Errors other than "not exist" are
// returned to the caller.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CreateDir creates a directory and all its parents if they don't exist.
func CreateDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("path %s exists but is not a directory", path)
	}
	if os.IsNotExist(err) {
		return os.MkdirAll(path, common.FileMode0755)
	}
	return fmt.Errorf("failed to check directory %s: %w", path, err)
}

// IsDir checks if the given path is a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// DirStats describes the regular files below a directory.
type DirStats struct {
	Files int
	Bytes int64
}

// WalkDirStats recursively counts regular files and their total size. A
// missing directory yields zero stats.
func WalkDirStats(dirName string, match func(name string) bool) (DirStats, error) {
	var stats DirStats
	isDir, err := IsDir(dirName)
	if err != nil {
		return stats, fmt.Errorf("failed to check if %s is a directory: %w", dirName, err)
	}
	if !isDir {
		return stats, nil
	}
	err = filepath.WalkDir(dirName, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if match != nil && !match(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk directory %s: %w", dirName, err)
	}
	return stats, nil
}

// FileMD5 returns the hex md5 of a file's content.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s for md5: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read file %s for md5: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteFile writes content to filePath, creating parent directories.
func WriteFile(filePath string, content []byte) error {
	if err := CreateDir(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", filePath, err)
	}
	if err := os.WriteFile(filePath, content, common.FileMode0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	return nil
}

// AtomicWriteFile writes content to a temp file next to filePath and renames
// it into place, so readers see either the old file or the complete new one.
func AtomicWriteFile(filePath string, content []byte) error {
	dir := filepath.Dir(filePath)
	if err := CreateDir(dir); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", filePath, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", filePath, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", filePath, err)
	}
	if err := os.Chmod(tmpName, common.FileMode0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file for %s: %w", filePath, err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file into %s: %w", filePath, err)
	}
	return nil
}

// RemoveDirContents deletes everything inside dir and keeps dir itself. It
// returns the number of top-level entries removed.
func RemoveDirContents(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	removed := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}
