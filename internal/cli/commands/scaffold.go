package commands

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed all:scaffold
var scaffoldFS embed.FS

const scaffoldRoot = "scaffold"

// copyScaffold copies the embedded project scaffold into targetDir and
// returns the written files relative to it. Existing files are kept unless
// force is set.
func copyScaffold(targetDir string, force bool) ([]string, error) {
	var created []string

	err := fs.WalkDir(scaffoldFS, scaffoldRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if p == scaffoldRoot {
			return nil
		}
		rel := strings.TrimPrefix(p, scaffoldRoot+"/")
		targetPath := filepath.Join(targetDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}

		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				return nil // Skip existing files
			}
		}

		content, err := scaffoldFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(targetPath, content, 0600); err != nil {
			return err
		}
		created = append(created, rel)
		return nil
	})

	return created, err
}
