// Package catalog builds the worklist of videos for a batch run.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var ErrDirectoryNotFound = errors.New("directory not found")

var videoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// Video is one input file. ID is its path relative to the scanned root,
// slash separated and without extension.
type Video struct {
	ID   string
	Path string
}

// Discover walks root and returns every video file under it, sorted by ID.
func Discover(root string) ([]Video, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrDirectoryNotFound)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", root, ErrDirectoryNotFound)
	}

	var videos []Video
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsVideo(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		videos = append(videos, Video{
			ID:   filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel))),
			Path: path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	slices.SortFunc(videos, func(a, b Video) int { return strings.Compare(a.ID, b.ID) })
	return videos, nil
}

func IsVideo(path string) bool {
	return slices.Contains(videoExtensions, strings.ToLower(filepath.Ext(path)))
}
