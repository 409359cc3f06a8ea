package fileutils

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ListByExtension walks dir and groups regular files by lowercased extension.
// Hidden files (backups included) are skipped. A missing dir yields an empty
// map rather than an error since ingest folders appear and disappear.
func ListByExtension(dir string) (map[string][]string, error) {
	out := map[string][]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == "" {
			return nil
		}
		out[ext] = append(out[ext], path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// PickDominant returns the files of the most frequent allowed extension.
// Ties go to the extension listed earlier in ratings. Audio formats are
// interchangeable encodings of the same book, so only one format gets
// imported per release.
func PickDominant(byExt map[string][]string, ratings []string) []string {
	var best []string
	for _, ext := range ratings {
		files := byExt[strings.ToLower(ext)]
		if len(files) > len(best) {
			best = files
		}
	}
	return best
}

// PickAll returns the files for every allowed extension. Ebook formats are
// complementary (a reader wants both the epub and the pdf), so all of them
// get imported.
func PickAll(byExt map[string][]string, allowed []string) []string {
	var out []string
	for _, ext := range allowed {
		out = append(out, byExt[strings.ToLower(ext)]...)
	}
	return out
}

// HasAnyExtension reports whether dir contains at least one file with one of
// the given extensions.
func HasAnyExtension(dir string, exts []string) (bool, error) {
	byExt, err := ListByExtension(dir)
	if err != nil {
		return false, err
	}
	for _, ext := range exts {
		if len(byExt[strings.ToLower(ext)]) > 0 {
			return true, nil
		}
	}
	return false, nil
}
