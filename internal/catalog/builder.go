package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

// BuildResult carries the built entries plus run diagnostics.
type BuildResult struct {
	Layout      Layout
	Files       int
	ParseErrors int
	Entries     []models.CatalogEntry
}

// Builder builds a catalog from a local vendor export tree.
type Builder struct {
	log *zap.SugaredLogger
}

func NewBuilder(log *zap.SugaredLogger) *Builder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Builder{log: log}
}

// Build detects the layout under root, normalizes every card record it finds
// and merges records sharing a code. Unreadable or malformed files are
// counted and skipped; only an unrecognized layout aborts the build.
func (b *Builder) Build(root, language string) (*BuildResult, error) {
	layout, err := DetectLayout(root, language)
	if err != nil {
		return nil, err
	}

	packs := PackTitles{}
	if layout.PacksPath != "" {
		packs, err = LoadPackTitles(layout.PacksPath)
		if err != nil {
			// Cards are still usable without set titles
			b.log.Warnw("ignoring unreadable pack metadata", "path", layout.PacksPath, "error", err)
			packs = PackTitles{}
		}
	}

	files, err := layout.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list card files in %s: %w", layout.CardsDir, err)
	}

	result := &BuildResult{Layout: layout, Files: len(files)}
	acc := NewAccumulator(DedupMerge)
	for _, path := range files {
		// packs.json can sit inside the scanned tree
		if filepath.Clean(path) == filepath.Clean(layout.PacksPath) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			result.ParseErrors++
			b.log.Warnw("failed to read card file", "path", path, "error", err)
			continue
		}
		_, records, err := DecodeRecords(data)
		if err != nil {
			result.ParseErrors++
			b.log.Warnw("skipping malformed card file", "path", path, "error", err)
			continue
		}
		for _, rec := range records {
			if entry, ok := NormalizeRecord(rec, packs); ok {
				acc.Add(entry)
			}
		}
	}
	result.Entries = acc.Entries()

	b.log.Infow("catalog built",
		"layout", layout.Kind,
		"files", result.Files,
		"parse_errors", result.ParseErrors,
		"entries", len(result.Entries))
	return result, nil
}

// WriteArtifact writes entries as a pretty-printed JSON array, creating
// parent directories as needed.
func WriteArtifact(path string, entries []models.CatalogEntry) error {
	if entries == nil {
		entries = []models.CatalogEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}

// ReadArtifact parses a catalog artifact.
func ReadArtifact(data []byte) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
