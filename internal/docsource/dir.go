// Package docsource reads chat exports from a local directory as documents.
package docsource

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/curator/internal/archive"
)

const (
	// DefaultMaxFileBytes skips exports larger than this.
	DefaultMaxFileBytes = 64 << 20

	sidecarSuffix = ".meta.yaml"
)

// documentNamespace seeds deterministic document ids.
var documentNamespace = uuid.MustParse("5b0c7e1a-3d2f-4a8e-9c61-2f7d8e4b1a90")

// sidecar is the optional "<file>.meta.yaml" next to an export.
type sidecar struct {
	Source       string   `yaml:"source"`
	AccountName  string   `yaml:"account_name"`
	Participants []string `yaml:"participants"`
	Title        string   `yaml:"title"`
}

// Dir lists export files under Root. Each regular, non-hidden file is one
// document; its format comes from Source, a sidecar, or the extension.
type Dir struct {
	Root         string
	Source       string // overrides every file's declared source when set
	AccountName  string // default owner name when a sidecar gives none
	MaxFileBytes int64
	Logger       *slog.Logger
}

// ListDocuments walks Root in lexical order and returns the documents passing
// sourceFilter, stamped with userID. Document ids are derived from the user
// and relative path, so listing the same tree twice yields the same ids.
func (d *Dir) ListDocuments(ctx context.Context, userID uuid.UUID, sourceFilter string) ([]archive.Document, error) {
	root := expandHome(d.Root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat export dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("export path %s is not a directory", root)
	}

	maxBytes := d.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	var docs []archive.Document
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger().Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || strings.HasSuffix(name, sidecarSuffix) {
			return nil
		}

		fi, err := entry.Info()
		if err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		if fi.Size() > maxBytes {
			d.logger().Warn("skipping oversized export", "path", path, "bytes", fi.Size())
			return nil
		}

		doc, err := d.load(root, path, userID)
		if err != nil {
			d.logger().Warn("skipping export", "path", path, "error", err)
			return nil
		}
		if archive.MatchesFilter(doc.Source, sourceFilter) {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk export dir: %w", err)
	}
	return docs, nil
}

func (d *Dir) load(root, path string, userID uuid.UUID) (archive.Document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return archive.Document{}, fmt.Errorf("read: %w", err)
	}

	meta, err := readSidecar(path + sidecarSuffix)
	if err != nil {
		return archive.Document{}, err
	}

	source := d.Source
	if source == "" {
		source = meta.Source
	}
	if source == "" {
		source = archive.FormatFromExtension(filepath.Ext(path)).String()
	}
	account := meta.AccountName
	if account == "" {
		account = d.AccountName
	}
	title := meta.Title
	if title == "" {
		title = filepath.Base(path)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	return archive.Document{
		ID:         uuid.NewSHA1(documentNamespace, []byte(userID.String()+"/"+filepath.ToSlash(rel))),
		UserID:     userID,
		Source:     source,
		SourceType: archive.ParseFormat(source),
		RawBody:    body,
		Metadata: archive.DocumentMetadata{
			AccountName:  account,
			Participants: meta.Participants,
			Title:        title,
		},
	}, nil
}

func readSidecar(path string) (sidecar, error) {
	var meta sidecar
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, fmt.Errorf("read sidecar: %w", err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse sidecar %s: %w", filepath.Base(path), err)
	}
	return meta, nil
}

func (d *Dir) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
