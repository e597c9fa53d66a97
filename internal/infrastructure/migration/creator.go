package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// versionWidth matches the zero-padded prefix of the files in /migrations
const versionWidth = 6

var skeleton = template.Must(template.New("migration").Parse(
	`-- Migration: {{.Name}}{{if .Down}} (Rollback){{end}}
-- Created: {{.Created}}
-- Description: {{if .Down}}Rollback for {{end}}{{.Description}}

-- Write your {{if .Down}}DOWN{{else}}UP{{end}} migration SQL here

`))

var (
	unsafeChars = regexp.MustCompile(`[^a-z0-9 _-]+`)
	separators  = regexp.MustCompile(`[ _-]+`)
)

// MigrationFile is a freshly written up/down pair
type MigrationFile struct {
	Version  string
	UpPath   string
	DownPath string
}

// MigrationInfo is one migration found in a source
type MigrationInfo struct {
	Version uint
	Name    string
}

// BaseName is the file name without direction and extension
func (m MigrationInfo) BaseName() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, m.Version, m.Name)
}

// CreateMigration writes skeleton files for the version after the highest
// one in dir. Existing files are never overwritten.
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	safe := sanitizeName(name)
	if safe == "" {
		return nil, errors.New("migration name must contain letters or digits")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	existing, err := ListMigrations(os.DirFS(dir))
	if err != nil {
		return nil, err
	}

	info := MigrationInfo{Version: 1, Name: safe}
	if n := len(existing); n > 0 {
		info.Version = existing[n-1].Version + 1
	}
	mf := &MigrationFile{
		Version:  fmt.Sprintf("%0*d", versionWidth, info.Version),
		UpPath:   filepath.Join(dir, info.BaseName()+".up.sql"),
		DownPath: filepath.Join(dir, info.BaseName()+".down.sql"),
	}

	data := struct {
		Name, Description, Created string
		Down                       bool
	}{Name: name, Description: description, Created: time.Now().Format(time.RFC3339)}

	if err := writeSkeleton(mf.UpPath, data); err != nil {
		return nil, err
	}
	data.Down = true
	if err := writeSkeleton(mf.DownPath, data); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeSkeleton(path string, data any) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := skeleton.Execute(f, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeName lowercases name and joins its words with single underscores
func sanitizeName(name string) string {
	s := unsafeChars.ReplaceAllString(strings.ToLower(name), "")
	return strings.Trim(separators.ReplaceAllString(s, "_"), "_")
}

// ListMigrations returns the <version>_<name>.up.sql files of fsys by
// version. A missing directory is empty.
func ListMigrations(fsys fs.FS) ([]MigrationInfo, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return []MigrationInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []MigrationInfo
	for _, e := range entries {
		base, ok := strings.CutSuffix(e.Name(), ".up.sql")
		if e.IsDir() || !ok {
			continue
		}
		prefix, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, MigrationInfo{Version: uint(v), Name: name})
	}
	slices.SortFunc(out, func(a, b MigrationInfo) int { return int(a.Version) - int(b.Version) })
	return out, nil
}
