package exporter

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txanomaly/internal/config"
)

// setupTestEnv returns a writer rooted at a temporary data directory
func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	paths, err := config.NewPaths(config.Default().Paths, t.TempDir())
	require.NoError(t, err)
	return NewCSVWriter(paths, slog.New(slog.NewTextHandler(io.Discard, nil))), paths
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	writer, paths := setupTestEnv(t)

	tests := []struct {
		name     string
		file     string
		options  WriteOptions
		expected [][]string
	}{
		{
			name: "headers and records",
			file: "basic.csv",
			options: WriteOptions{
				Headers: []string{"a", "b"},
				Records: [][]string{{"1", "2"}, {"3", "4"}},
			},
			expected: [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}},
		},
		{
			name: "quoting",
			file: "quoted.csv",
			options: WriteOptions{
				Headers: []string{"text"},
				Records: [][]string{{"comma, inside"}, {`quote "here"`}},
			},
			expected: [][]string{{"text"}, {"comma, inside"}, {`quote "here"`}},
		},
		{
			name:     "headers only",
			file:     "empty.csv",
			options:  WriteOptions{Headers: []string{"x"}},
			expected: [][]string{{"x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, writer.WriteCSV(tt.file, tt.options))
			assert.Equal(t, tt.expected, readCSV(t, paths.GetReportPath(tt.file)))
		})
	}
}

func TestWriteCSVAppend(t *testing.T) {
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteSimpleCSV("log.csv", []string{"n"}, [][]string{{"1"}}))
	require.NoError(t, writer.WriteCSV("log.csv", WriteOptions{
		Headers: []string{"ignored"},
		Records: [][]string{{"2"}},
		Append:  true,
	}))

	assert.Equal(t, [][]string{{"n"}, {"1"}, {"2"}}, readCSV(t, paths.GetReportPath("log.csv")))
}

func TestWriteCSVBOM(t *testing.T) {
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteCSV("bom.csv", WriteOptions{
		Headers:   []string{"h"},
		BOMPrefix: true,
	}))

	content, err := os.ReadFile(paths.GetReportPath("bom.csv"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF, 'h', '\n'}, content)
}

func TestWriteCSVAbsolutePath(t *testing.T) {
	writer, _ := setupTestEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "abs.csv")

	require.NoError(t, writer.WriteSimpleCSV(target, []string{"k"}, [][]string{{"v"}}))
	assert.Equal(t, [][]string{{"k"}, {"v"}}, readCSV(t, target))
}

func TestStreamWriter(t *testing.T) {
	writer, paths := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("stream.csv", []string{"id", "value"})
	require.NoError(t, err)
	for _, rec := range [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}} {
		require.NoError(t, stream.WriteRecord(rec))
	}
	assert.Equal(t, 3, stream.Rows())
	require.NoError(t, stream.Close())

	records := readCSV(t, paths.GetReportPath("stream.csv"))
	assert.Len(t, records, 4)
	assert.Equal(t, []string{"3", "c"}, records[3])
}
