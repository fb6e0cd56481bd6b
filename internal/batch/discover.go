package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"framemill/internal/services"
)

// Supported media file extensions (lowercase, with leading dot).
var mediaExtensions = map[string]bool{
	".avi":  true,
	".mov":  true,
	".mp4":  true,
	".mkv":  true,
	".mpg":  true,
	".mpeg": true,
	".ts":   true,
	".mts":  true,
	".m2ts": true,
	".mxf":  true,
	".dv":   true,
	".hdv":  true,
}

// SupportedExtension reports whether a path carries a supported media
// extension.
func SupportedExtension(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover resolves the input path to the list of candidate files. A single
// supported file yields itself; a directory is scanned shallow or
// recursively. Results are de-duplicated and sorted lexicographically so
// processing order is reproducible. A missing input path or an empty
// candidate set is a run-level failure.
func Discover(inputPath string, recursive bool) ([]string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrFilesystem, "batch", "discover",
				fmt.Sprintf("input path does not exist: %s", inputPath), nil)
		}
		return nil, services.Wrap(services.ErrFilesystem, "batch", "discover", inputPath, err)
	}

	if !info.IsDir() {
		if !SupportedExtension(inputPath) {
			return nil, services.Wrap(services.ErrFilesystem, "batch", "discover",
				fmt.Sprintf("unsupported file type: %s", inputPath), nil)
		}
		return []string{inputPath}, nil
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if !SupportedExtension(path) {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	if recursive {
		err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() {
				add(path)
			}
			return nil
		})
	} else {
		var entries []fs.DirEntry
		entries, err = os.ReadDir(inputPath)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() {
					add(filepath.Join(inputPath, entry.Name()))
				}
			}
		}
	}
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "batch", "discover", inputPath, err)
	}

	if len(files) == 0 {
		return nil, services.Wrap(services.ErrFilesystem, "batch", "discover",
			fmt.Sprintf("no supported media files found under %s", inputPath), nil)
	}
	sort.Strings(files)
	return files, nil
}
