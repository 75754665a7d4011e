package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"modelgate/internal/common/fsutil"
	"modelgate/internal/config"
	"modelgate/pkg/types"
)

// SkipFunc is told about entries that were ignored during discovery.
type SkipFunc func(path string, err error)

// Scanner discovers model artifacts laid out as <root>/<owner>/<name><suffix>.
type Scanner struct {
	Suffix string
	OnSkip SkipFunc
}

// NewScanner returns a Scanner for files ending in suffix.
func NewScanner(suffix string) *Scanner { return &Scanner{Suffix: suffix} }

// Discover scans root with the given suffix. See Scanner.Scan.
func Discover(root, suffix string) ([]types.Model, error) {
	return NewScanner(suffix).Scan(root)
}

// Scan walks the two-level owner/file structure under root and returns one
// Model per eligible file, ordered by owner then file name. A missing root
// yields an empty result; a root that exists but cannot be listed is a
// *config.ConfigError. Malformed entries are skipped.
func (s *Scanner) Scan(root string) ([]types.Model, error) {
	if s.Suffix == "" {
		return nil, &config.ConfigError{Field: "model_suffix", Msg: "must not be empty"}
	}
	abs, err := fsutil.ResolveDir(root)
	if err != nil {
		return nil, &config.ConfigError{Field: "models_dir", Msg: "resolve", Err: err}
	}
	owners, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &config.ConfigError{Field: "models_dir", Msg: "read " + abs, Err: err}
	}

	var models []types.Model
	for _, o := range owners {
		ownerDir := filepath.Join(abs, o.Name())
		if !isDir(o, ownerDir) {
			continue
		}
		files, err := os.ReadDir(ownerDir)
		if err != nil {
			s.skip(ownerDir, err)
			continue
		}
		for _, f := range files {
			name := f.Name()
			if !strings.HasSuffix(name, s.Suffix) || len(name) == len(s.Suffix) {
				continue
			}
			p := filepath.Join(ownerDir, name)
			fi, err := os.Stat(p)
			if err != nil {
				s.skip(p, err)
				continue
			}
			if fi.IsDir() {
				s.skip(p, fmt.Errorf("is a directory"))
				continue
			}
			base := strings.TrimSuffix(name, s.Suffix)
			models = append(models, types.Model{
				ID:      o.Name() + "/" + base,
				Owner:   o.Name(),
				Name:    base,
				Path:    p,
				Created: fsutil.CreatedAt(fi).Unix(),
			})
		}
	}
	return models, nil
}

func (s *Scanner) skip(path string, err error) {
	if s.OnSkip != nil {
		s.OnSkip(path, err)
	}
}

// isDir follows symlinks so linked owner directories are honoured.
func isDir(e os.DirEntry, path string) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
