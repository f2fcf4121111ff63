package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// discoverFiles walks the input directory collecting files that match the
// include patterns and none of the exclude patterns. A single file as
// input is accepted as-is. Results are sorted for a stable dispatch order.
func (o *Orchestrator) discoverFiles() ([]string, error) {
	root := o.cfg.Input.Dir

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories, including the cache's own home.
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if o.matchFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// matchFile applies include then exclude patterns to a file's base name.
// An empty include list accepts everything.
func (o *Orchestrator) matchFile(name string) bool {
	included := len(o.cfg.Input.Include) == 0
	for _, pat := range o.cfg.Input.Include {
		if ok, _ := filepath.Match(pat, name); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, pat := range o.cfg.Input.Exclude {
		if ok, _ := filepath.Match(pat, name); ok {
			return false
		}
	}
	return true
}
