package scenario

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// NameSeparator joins the path components of a scenario name.
const NameSeparator = "."

// Entry is a discovered scenario document. The document itself is not read
// until the scenario runs.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Discover walks root recursively and returns every .yaml/.yml document in
// lexical path order. filter, if non-empty, is a glob matched against the
// dotted scenario name. Two documents deriving the same name (a/b.yaml and
// a.b.yaml) are an error, whether or not the filter selects them.
func Discover(root, filter string) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cases directory not found: %s", root)
		}
		return nil, fmt.Errorf("error accessing cases directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	if filter != "" {
		if _, err := path.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	var entries []Entry
	seen := make(map[string]string)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsDocument(p) {
			return nil
		}

		name, err := NameFor(root, p)
		if err != nil {
			return err
		}
		// Names identify scenarios in reports, history and staging paths.
		if other, ok := seen[name]; ok {
			return fmt.Errorf("scenario name %q is used by both %s and %s", name, other, p)
		}
		seen[name] = p
		if filter != "" {
			// Pattern was validated above.
			if ok, _ := path.Match(filter, name); !ok {
				return nil
			}
		}

		entries = append(entries, Entry{Name: name, Path: p})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// IsDocument reports whether p has a scenario document extension.
func IsDocument(p string) bool {
	ext := filepath.Ext(p)
	return ext == ".yaml" || ext == ".yml"
}

// NameFor derives the scenario name of the document at p: its path relative
// to root, extension stripped, components joined by NameSeparator. A document
// named only by its extension (.yaml, help/.yml) has no name and is an error.
//
//	cases/help/basic.yaml -> help.basic
func NameFor(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("scenario %s is not under %s: %w", p, root, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("scenario %s is not under %s", p, root)
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	parts := strings.Split(rel, "/")
	if slices.Contains(parts, "") {
		return "", fmt.Errorf("scenario %s has an empty name component", p)
	}
	return strings.Join(parts, NameSeparator), nil
}
