package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDetectLayout(t *testing.T) {
	t.Run("nested with packs", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "en", "cards", "OP01", "a.json"), `[]`)
		writeFile(t, filepath.Join(root, "en", "packs.json"), `[]`)

		layout, err := DetectLayout(root, "en")
		require.NoError(t, err)
		assert.Equal(t, LayoutNested, layout.Kind)
		assert.Equal(t, filepath.Join(root, "en", "packs.json"), layout.PacksPath)
	})

	t.Run("flat", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "data", "en", "op01.json"), `[]`)

		layout, err := DetectLayout(root, "en")
		require.NoError(t, err)
		assert.Equal(t, LayoutFlat, layout.Kind)
		assert.Empty(t, layout.PacksPath)
	})

	t.Run("dated export with packs under json", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "Export-2024-01-EN", "json", "cards_op01.json"), `[]`)
		writeFile(t, filepath.Join(root, "Export-2024-01-EN", "json", "packs.json"), `[]`)

		layout, err := DetectLayout(root, "en")
		require.NoError(t, err)
		assert.Equal(t, LayoutDated, layout.Kind)
		assert.Equal(t, filepath.Join(root, "Export-2024-01-EN", "json", "packs.json"), layout.PacksPath)
	})

	t.Run("nested wins over flat", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "en", "cards", "a.json"), `[]`)
		writeFile(t, filepath.Join(root, "data", "en", "b.json"), `[]`)

		layout, err := DetectLayout(root, "en")
		require.NoError(t, err)
		assert.Equal(t, LayoutNested, layout.Kind)
	})

	t.Run("unrecognized", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "random", "x.json"), `[]`)

		_, err := DetectLayout(root, "en")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLayoutNotRecognized))

		var layoutErr *LayoutError
		require.ErrorAs(t, err, &layoutErr)
		assert.Len(t, layoutErr.Attempted, 3)
		assert.Contains(t, err.Error(), "cards_*.json")
	})
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "dump-en", "json")
	writeFile(t, filepath.Join(base, "cards_op01.json"), `[]`)
	writeFile(t, filepath.Join(base, "CARDS_op02.JSON"), `[]`)
	writeFile(t, filepath.Join(base, "packs.json"), `[]`)
	writeFile(t, filepath.Join(base, "notes.txt"), `x`)

	layout, err := DetectLayout(root, "en")
	require.NoError(t, err)
	files, err := layout.ListFiles()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantShape Shape
		wantIDs   []string
	}{
		{"array", `[{"id":"OP01-001"},{"id":"OP01-002"},5]`, ShapeArray, []string{"OP01-001", "OP01-002"}},
		{"single", `{"id":"OP01-003","name":"Luffy"}`, ShapeSingle, []string{"OP01-003"}},
		{"map keeps document order", `{"z":{"id":"OP01-009"},"a":{"id":"OP01-001"}}`, ShapeMap, []string{"OP01-009", "OP01-001"}},
		{"object with id but no name is a map", `{"id":"x","other":{"id":"OP02-001"}}`, ShapeMap, []string{"OP02-001"}},
		{"bom prefix", "\xef\xbb\xbf[{\"id\":\"OP01-004\"}]", ShapeArray, []string{"OP01-004"}},
		{"scalar", `42`, ShapeUnknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, records, err := DecodeRecords([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, shape)
			var ids []string
			for _, r := range records {
				ids = append(ids, safeStr(r["id"]))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	_, _, err := DecodeRecords([]byte(`{"id": `))
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestParsePackTitles(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  PackTitles
	}{
		{
			name:  "array with title parts",
			input: `[{"id":"op-01","title_parts":{"title":"Romance Dawn","label":"OP-01"},"raw_title":"raw"}]`,
			want:  PackTitles{"OP-01": "Romance Dawn"},
		},
		{
			name:  "packs key with label fallback",
			input: `{"packs":[{"id":"st01","title_parts":{"label":"ST-01"}}]}`,
			want:  PackTitles{"ST01": "ST-01"},
		},
		{
			name:  "items key precedence",
			input: `{"items":[{"id":"a","raw_title":"Raw","title":"T","name":"N"},{"id":"b","title":"T"},{"id":"c","name":"N"},{"id":"d"}]}`,
			want:  PackTitles{"A": "Raw", "B": "T", "C": "N", "D": "D"},
		},
		{
			name:  "map of packs",
			input: `{"569101":{"id":"569101","name":"Romance Dawn"},"569102":{"id":"569102","title":"Paramount War"}}`,
			want:  PackTitles{"569101": "Romance Dawn", "569102": "Paramount War"},
		},
		{
			name:  "skips packs without id",
			input: `[{"name":"orphan"},"junk"]`,
			want:  PackTitles{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePackTitles([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRecord(t *testing.T) {
	packs := PackTitles{"569101": "Romance Dawn"}
	_, records, err := DecodeRecords([]byte(`[
		{"id":" op01-077 ","name":"Perona","pack_id":"569101","rarity":"SR","category":"Character",
		 "colors":["Green","Purple"],"types":["Thriller Bark Pirates"," ",""],
		 "img_url":"small.png","img_full_url":"full.png","cost":3,"power":"4000"},
		{"id":"ST01-001","colors":[],"cost":null,"img_url":"only-small.png"},
		{"id":"P-001","set":"promo","name":"Promo Luffy"},
		{"name":"no id"}
	]`))
	require.NoError(t, err)

	perona, ok := NormalizeRecord(records[0], packs)
	require.True(t, ok)
	assert.Equal(t, "OP01-077", perona.Code)
	assert.Equal(t, "Perona", perona.Name)
	assert.Equal(t, "OP01", perona.Set)
	assert.Equal(t, "Romance Dawn", perona.SetName)
	assert.Equal(t, "569101", perona.PackID)
	assert.Equal(t, "Green/Purple", perona.Color)
	assert.Equal(t, "Character", perona.Type)
	assert.Equal(t, "full.png", perona.ImageURL)
	assert.Equal(t, "3", perona.Cost)
	assert.Equal(t, "4000", perona.Power)
	assert.Equal(t, []string{"Thriller Bark Pirates"}, perona.Traits)

	starter, ok := NormalizeRecord(records[1], packs)
	require.True(t, ok)
	assert.Equal(t, "ST01-001", starter.Name, "name falls back to code")
	assert.Empty(t, starter.Color)
	assert.Empty(t, starter.Cost)
	assert.Empty(t, starter.SetName)
	assert.Equal(t, "only-small.png", starter.ImageURL)

	promo, ok := NormalizeRecord(records[2], packs)
	require.True(t, ok)
	assert.Equal(t, "PROMO", promo.Set)

	_, ok = NormalizeRecord(records[3], packs)
	assert.False(t, ok)
}

func TestInferSet(t *testing.T) {
	assert.Equal(t, "OP01", InferSet("op01-001"))
	assert.Equal(t, "P", InferSet("P-001"))
	assert.Equal(t, "EB01", InferSet("EB01"))
	assert.Equal(t, "UNKNOWN", InferSet(""))
	assert.Equal(t, "UNKNOWN", InferSet("-001"))
}

func TestBuildNestedLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "en", "packs.json"), `{"packs":[{"id":"569101","title_parts":{"title":"Romance Dawn"}}]}`)
	writeFile(t, filepath.Join(root, "en", "cards", "569101", "a.json"), `[
		{"id":"OP01-002","name":"Zoro","pack_id":"569101","rarity":"L"},
		{"id":"OP01-001","name":"Luffy","pack_id":"569101","rarity":"L","img_url":"luffy.png"}
	]`)
	// reprint of Luffy without metadata must not blank known fields
	writeFile(t, filepath.Join(root, "en", "cards", "reprints", "b.json"), `{"id":"op01-001","name":"Luffy (Reprint)"}`)
	writeFile(t, filepath.Join(root, "en", "cards", "broken.json"), `{"id": `)

	result, err := NewBuilder(nil).Build(root, "en")
	require.NoError(t, err)

	assert.Equal(t, LayoutNested, result.Layout.Kind)
	assert.Equal(t, 3, result.Files)
	assert.Equal(t, 1, result.ParseErrors)
	require.Len(t, result.Entries, 2)

	luffy := result.Entries[0]
	assert.Equal(t, "OP01-001", luffy.Code)
	assert.Equal(t, "Luffy (Reprint)", luffy.Name)
	assert.Equal(t, "luffy.png", luffy.ImageURL)
	assert.Equal(t, "L", luffy.Rarity)
	assert.Equal(t, "Romance Dawn", luffy.SetName)
	assert.Equal(t, "569101", luffy.PackID)
	assert.Equal(t, "OP01-002", result.Entries[1].Code)
}

func TestBuildFlatAndDatedLayouts(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "data", "jp", "st01.json"), `{"ST01-001":{"id":"ST01-001","name":"Luffy"}}`)

		result, err := NewBuilder(nil).Build(root, "jp")
		require.NoError(t, err)
		assert.Equal(t, LayoutFlat, result.Layout.Kind)
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "ST01", result.Entries[0].Set)
	})

	t.Run("dated", func(t *testing.T) {
		root := t.TempDir()
		base := filepath.Join(root, "punk-records-EN")
		writeFile(t, filepath.Join(base, "packs.json"), `[{"id":"P1","name":"Pack One"}]`)
		writeFile(t, filepath.Join(base, "json", "cards_1.json"), `[{"id":"OP02-001","name":"Newgate","pack_id":"p1"}]`)
		writeFile(t, filepath.Join(base, "json", "other.json"), `[{"id":"OP09-001","name":"ignored"}]`)

		result, err := NewBuilder(nil).Build(root, "en")
		require.NoError(t, err)
		assert.Equal(t, LayoutDated, result.Layout.Kind)
		assert.Equal(t, 1, result.Files)
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "Pack One", result.Entries[0].SetName)
	})

	t.Run("unrecognized aborts", func(t *testing.T) {
		_, err := NewBuilder(nil).Build(t.TempDir(), "en")
		assert.ErrorIs(t, err, ErrLayoutNotRecognized)
	})
}

func TestWriteAndReadArtifact(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data", "en", "x.json"), `[{"id":"OP01-002","name":"B"},{"id":"OP01-001","name":"A"}]`)
	result, err := NewBuilder(nil).Build(root, "en")
	require.NoError(t, err)

	out := filepath.Join(root, "out", "nested", "catalog.json")
	require.NoError(t, WriteArtifact(out, result.Entries))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {")

	entries, err := ReadArtifact(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "OP01-001", entries[0].Code)
	assert.Equal(t, "A", entries[0].Name)

	empty := filepath.Join(root, "empty.json")
	require.NoError(t, WriteArtifact(empty, nil))
	data, err = os.ReadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
