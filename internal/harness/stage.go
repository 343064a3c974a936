package harness

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Stager prepares isolated working directories holding a fresh copy of the
// build output.
type Stager struct {
	BuildDir string
	Tool     string
	Platform Platform
}

// Stage removes anything at dir and replaces it with a recursive copy of the
// build directory. Outside Windows the tool's executable bits are set again
// because copies do not reliably preserve them.
func (s *Stager) Stage(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return &StagingError{Dir: dir, Op: "remove", Err: err}
	}

	info, err := os.Stat(s.BuildDir)
	if err != nil {
		return &StagingError{Dir: dir, Op: "copy", Err: fmt.Errorf("build directory: %w", err)}
	}
	if !info.IsDir() {
		return &StagingError{Dir: dir, Op: "copy", Err: fmt.Errorf("build directory %s is not a directory", s.BuildDir)}
	}

	if err := copyTree(s.BuildDir, dir); err != nil {
		return &StagingError{Dir: dir, Op: "copy", Err: err}
	}

	if !s.Platform.IsWindows() {
		bin := filepath.Join(dir, s.Platform.BinaryName(s.Tool))
		bi, err := os.Stat(bin)
		if err != nil {
			return &StagingError{Dir: dir, Op: "chmod", Err: err}
		}
		if err := os.Chmod(bin, bi.Mode().Perm()|0o111); err != nil {
			return &StagingError{Dir: dir, Op: "chmod", Err: err}
		}
	}
	return nil
}

// WriteInputs materializes the scenario's input files in dir. Names may
// contain forward slashes; missing parent directories are created.
func WriteInputs(dir string, inputs map[string]string) error {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return &StagingError{Dir: dir, Op: "write", Err: err}
		}
		if err := os.WriteFile(target, []byte(inputs[name]), 0o644); err != nil {
			return &StagingError{Dir: dir, Op: "write", Err: err}
		}
	}
	return nil
}

// copyTree copies src into dst, creating dst. Symbolic links are followed
// so the staged tree is self-contained.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return copyTree(path, target)
			}
			return copyFile(path, target, info.Mode().Perm())
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			// Sockets, devices and pipes have no content to copy.
			return nil
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
