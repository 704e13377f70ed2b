package ingest

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPeriodKeyFromName(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantKey int
		wantOK  bool
	}{
		{name: "plain month", path: "/in/Januar_2025.pdf", wantKey: 202501, wantOK: true},
		{name: "umlaut month", path: "/in/März_2024.PDF", wantKey: 202403, wantOK: true},
		{name: "december", path: "Dezember_2024.pdf", wantKey: 202412, wantOK: true},
		{name: "unknown month", path: "Brumaire_2024.pdf", wantOK: false},
		{name: "missing year", path: "Januar.pdf", wantOK: false},
		{name: "extra tokens", path: "Lohnjournal_Januar_2025.pdf", wantOK: false},
		{name: "not a pdf", path: "Januar_2025.xlsx", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := periodKeyFromName(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestSortChronological(t *testing.T) {
	paths := []string{
		"/in/scan_final.pdf",
		"/in/Dezember_2024.pdf",
		"/in/Februar_2025.pdf",
		"/in/Januar_2025.pdf",
		"/in/archiv.pdf",
	}
	sortChronological(paths)
	assert.Equal(t, []string{
		"/in/Dezember_2024.pdf",
		"/in/Januar_2025.pdf",
		"/in/Februar_2025.pdf",
		"/in/archiv.pdf",
		"/in/scan_final.pdf",
	}, paths)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/doc.pdf"
	writeFile(t, path, "payload")

	h1, err := hashFile(path)
	assert.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, err := hashFile(path)
	assert.NoError(t, err)
	assert.Equal(t, h1, h2)

	other := dir + "/other.pdf"
	writeFile(t, other, "different payload")
	h3, err := hashFile(other)
	assert.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestImportDirectoryEmpty(t *testing.T) {
	imp := NewImporter(nil, nil, nil, nil, nil)
	dir := t.TempDir()
	writeFile(t, dir+"/readme.txt", "not a pdf")

	_, stats, err := imp.ImportDirectory(context.Background(), dir, 4)
	assert.Error(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 0, stats.Matched)
}
