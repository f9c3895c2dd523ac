package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"predictd/internal/common/fsutil"
	"predictd/pkg/types"
)

// Scan walks a cache directory laid out as <dir>/<org>/<repo>/<file>.gguf and
// lists the cached weights. A missing directory yields an empty list.
func Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if !fsutil.PathExists(abs) {
		return nil, nil
	}
	var models []types.Model
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isGGUFName(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(abs, filepath.Dir(p))
		if err != nil {
			return err
		}
		size, _ := fsutil.RegularFileSize(p)
		models = append(models, types.Model{
			ID:        filepath.ToSlash(rel),
			File:      d.Name(),
			Path:      p,
			Quant:     QuantOf(d.Name()),
			SizeBytes: size,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", abs, err)
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].ID != models[j].ID {
			return models[i].ID < models[j].ID
		}
		return models[i].File < models[j].File
	})
	return models, nil
}

func isGGUFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gguf")
}

// QuantOf extracts the quantization tag from names like
// "goat-70b-storytelling.Q5_K_M.gguf". Returns "" when there is none.
func QuantOf(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndexAny(stem, ".-")
	if i < 0 {
		return ""
	}
	tag := strings.ToUpper(stem[i+1:])
	switch {
	case tag == "F16", tag == "F32", tag == "BF16":
		return tag
	case strings.HasPrefix(tag, "IQ"), len(tag) > 1 && tag[0] == 'Q' && tag[1] >= '0' && tag[1] <= '9':
		return tag
	}
	return ""
}

// removeStalePartials drops interrupted downloads left next to dst.
func removeStalePartials(dst string) {
	matches, _ := filepath.Glob(dst + ".partial*")
	for _, m := range matches {
		_ = os.Remove(m)
	}
}
