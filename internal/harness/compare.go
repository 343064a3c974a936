package harness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/multierr"
)

// Compare checks every expected output file in dir against its expected
// content. All failures are returned together (see multierr.Errors); a nil
// result means every file matched exactly.
//
// Produced files are read in text mode on every platform: "\r\n" and a lone
// "\r" both read as "\n". Expected content is compared as written.
func Compare(dir string, outputs map[string]string) error {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		expected := outputs[name]
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				errs = multierr.Append(errs, &MissingOutputFile{File: name})
			} else {
				errs = multierr.Append(errs, fmt.Errorf("%s: reading output: %w", name, err))
			}
			continue
		}

		actual := textMode.Replace(string(data))
		if actual != expected {
			errs = multierr.Append(errs, &ContentMismatch{
				File:     name,
				Expected: expected,
				Actual:   actual,
				Diff:     unifiedDiff(name, expected, actual),
			})
		}
	}
	return errs
}

// textMode translates every line ending to "\n".
var textMode = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// unifiedDiff renders a diff from expected to actual content.
func unifiedDiff(name, expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected/" + name,
		ToFile:   "actual/" + name,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}
