package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRead(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("report.pdf", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", filepath.Base(path))

	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestSaveThenReadWithRelativeBaseDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	store, err := NewLocalStorage("./reports")
	require.NoError(t, err)

	path, err := store.Save("report.pdf", []byte("hello"))
	require.NoError(t, err)

	// The path Save hands back must be readable as-is, not re-joined
	// with the base dir a second time.
	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	data, err = store.Read("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestSaveCollisionAddsSuffix(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	first, err := store.Save("report.pdf", []byte("one"))
	require.NoError(t, err)
	second, err := store.Save("report.pdf", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "report_1.pdf", filepath.Base(second))

	data, err := store.Read(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain name kept", "august-report.pdf", "august-report.pdf"},
		{"path separators replaced", `../etc/passwd`, "_etc_passwd"},
		{"illegal characters replaced", `re<po>rt:2025.pdf`, "re_po_rt_2025.pdf"},
		{"empty falls back", "", "attachment.pdf"},
		{"dots only falls back", "...", "attachment.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSanitizeFilenameBoundsLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".pdf"
	got := SanitizeFilename(long)

	assert.LessOrEqual(t, len(got), 200)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}
