package organizer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tunevault/tunevault/internal/apperrors"
)

// CleanupEmptyDirs removes directories under libraryRoot that contain
// nothing but junk files (spec §4.5), walking bottom-up so a directory
// emptied by this pass can itself be removed. It never ascends outside
// libraryRoot and never removes libraryRoot itself.
func (o *Organizer) CleanupEmptyDirs(libraryRoot string) (int, error) {
	root, err := filepath.Abs(filepath.Clean(libraryRoot))
	if err != nil {
		return 0, apperrors.New(err).Component("organizer").Category(apperrors.CategoryIO).Build()
	}

	var dirs []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.New(err).Component("organizer").Category(apperrors.CategoryIO).Build()
	}

	// Deepest paths first, so emptied children are gone before their
	// parent is examined.
	sortByDepthDescending(dirs)

	removed := 0
	for _, dir := range dirs {
		if !isStrictDescendant(root, dir) {
			continue
		}
		ok, err := removableAsJunkOnly(dir)
		if err != nil || !ok {
			continue
		}
		if err := os.Remove(dir); err == nil {
			removed++
		}
	}
	return removed, nil
}

func sortByDepthDescending(dirs []string) {
	for i := 1; i < len(dirs); i++ {
		for j := i; j > 0 && depth(dirs[j-1]) < depth(dirs[j]); j-- {
			dirs[j-1], dirs[j] = dirs[j], dirs[j-1]
		}
	}
}

func depth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}

// isStrictDescendant guards against ever acting outside the library root
// (spec §8 invariant 4).
func isStrictDescendant(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// removableAsJunkOnly reports whether dir contains only files from the
// junk list (Thumbs.db, desktop.ini, .DS_Store) and no subdirectories; a
// user-placed cover-art file (folder.jpg, albumart.jpg, or any other real
// file) blocks removal. When the answer is yes, it also deletes those junk
// files so that dir is left empty.
func removableAsJunkOnly(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			return false, nil
		}
		if !junkFiles[strings.ToLower(e.Name())] {
			return false, nil
		}
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
	return true, nil
}
