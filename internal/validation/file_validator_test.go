package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "txanomaly/internal/errors"
)

func testValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestValidateExtract(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       error
		errorContains string
	}{
		{
			name: "valid extract",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "tx.csv")
				require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0644))
				return path
			},
		},
		{
			name: "upper-case extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "TX.CSV")
				require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0644))
				return path
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.csv")
			},
			wantErr: apperrors.ErrInputNotFound,
		},
		{
			name: "wrong extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "tx.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			errorContains: "not a CSV file",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "dir.csv")
				require.NoError(t, os.Mkdir(path, 0755))
				return path
			},
			errorContains: "is a directory",
		},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateExtract(tt.setupFunc(t))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errorContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOutputDirectory(t *testing.T) {
	v := testValidator()

	dir := filepath.Join(t.TempDir(), "reports", "anomaly")
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "the write probe is removed")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.Error(t, v.ValidateOutputDirectory(filepath.Join(file, "sub")))
}
