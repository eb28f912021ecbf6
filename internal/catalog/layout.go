// Package catalog builds the canonical card catalog artifact from vendor
// card-data exports, either a local source tree or the online card API.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LayoutKind names a known vendor export layout.
type LayoutKind string

const (
	// LayoutNested is <root>/<language>/cards/**/*.json plus <root>/<language>/packs.json
	LayoutNested LayoutKind = "nested-by-language"
	// LayoutFlat is <root>/data/<language>/*.json without pack metadata
	LayoutFlat LayoutKind = "flat-by-language"
	// LayoutDated is <root>/<name>-<language>.../json/cards_*.json
	LayoutDated LayoutKind = "dated-export"
)

// ErrLayoutNotRecognized is wrapped by LayoutError.
var ErrLayoutNotRecognized = errors.New("layout not recognized")

// LayoutError reports a source root that matches none of the known layouts.
type LayoutError struct {
	Root      string
	Language  string
	Attempted []string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%s for root %q (language %q); expected one of: %s",
		ErrLayoutNotRecognized, e.Root, e.Language, strings.Join(e.Attempted, "; "))
}

func (e *LayoutError) Unwrap() error {
	return ErrLayoutNotRecognized
}

// Layout is a detected source layout.
type Layout struct {
	Kind     LayoutKind
	BaseDir  string
	CardsDir string
	// PacksPath is empty when the layout carries no pack metadata
	PacksPath string
}

// DetectLayout probes root for the known layouts in order; the first match wins.
func DetectLayout(root, language string) (Layout, error) {
	// Nested: <root>/<language>/cards
	langDir := filepath.Join(root, language)
	cardsDir := filepath.Join(langDir, "cards")
	if isDir(cardsDir) {
		packs := filepath.Join(langDir, "packs.json")
		if !isFile(packs) {
			packs = ""
		}
		return Layout{Kind: LayoutNested, BaseDir: langDir, CardsDir: cardsDir, PacksPath: packs}, nil
	}

	// Flat: <root>/data/<language>
	flatDir := filepath.Join(root, "data", language)
	if isDir(flatDir) {
		return Layout{Kind: LayoutFlat, BaseDir: flatDir, CardsDir: flatDir}, nil
	}

	// Dated export: a subdirectory whose name contains -<language> with a json/ folder
	suffix := "-" + strings.ToLower(language)
	if entries, err := os.ReadDir(root); err == nil {
		for _, e := range entries {
			if !e.IsDir() || !strings.Contains(strings.ToLower(e.Name()), suffix) {
				continue
			}
			base := filepath.Join(root, e.Name())
			jsonDir := filepath.Join(base, "json")
			if !isDir(jsonDir) {
				continue
			}

			packs := ""
			switch {
			case isFile(filepath.Join(base, "packs.json")):
				packs = filepath.Join(base, "packs.json")
			case isFile(filepath.Join(jsonDir, "packs.json")):
				packs = filepath.Join(jsonDir, "packs.json")
			}
			return Layout{Kind: LayoutDated, BaseDir: base, CardsDir: jsonDir, PacksPath: packs}, nil
		}
	}

	return Layout{}, &LayoutError{
		Root:     root,
		Language: language,
		Attempted: []string{
			fmt.Sprintf("%s (%s)", LayoutNested, filepath.Join(root, language, "cards")),
			fmt.Sprintf("%s (%s)", LayoutFlat, filepath.Join(root, "data", language)),
			fmt.Sprintf("%s (%s)", LayoutDated, filepath.Join(root, "*"+suffix+"*", "json", "cards_*.json")),
		},
	}
}

// ListFiles enumerates the card files of the layout, sorted by path.
func (l Layout) ListFiles() ([]string, error) {
	switch l.Kind {
	case LayoutNested:
		var files []string
		err := filepath.WalkDir(l.CardsDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", l.CardsDir, err)
		}
		return files, nil
	case LayoutDated:
		return listDir(l.CardsDir, func(name string) bool {
			return strings.HasPrefix(name, "cards_") && strings.HasSuffix(name, ".json")
		})
	default:
		return listDir(l.CardsDir, func(name string) bool {
			return strings.HasSuffix(name, ".json")
		})
	}
}

func listDir(dir string, keep func(lowerName string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if keep(strings.ToLower(e.Name())) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
