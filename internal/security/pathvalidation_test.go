package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	reports := filepath.Join(root, "reports")
	private := filepath.Join(root, "private")
	require.NoError(t, os.MkdirAll(reports, 0o755))
	require.NoError(t, os.MkdirAll(private, 0o755))
	require.NoError(t, os.Symlink(private, filepath.Join(reports, "link")))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(reports, "summary.json"), false},
		{"new nested dir", filepath.Join(reports, "s1", "deep", "risk.html"), false},
		{"dir itself", reports, false},
		{"dot dot escape", filepath.Join(reports, "..", "private", "x.json"), true},
		{"sibling", filepath.Join(private, "x.json"), true},
		{"symlink escape", filepath.Join(reports, "link", "x.json"), true},
		{"symlink new file escape", filepath.Join(reports, "link", "new", "x.json"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePathWithinDirectory(tt.path, reports)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingBase(t *testing.T) {
	t.Parallel()
	err := ValidatePathWithinDirectory("x.json", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestValidateExportPath(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "fms", "summary.json")))
	assert.NoError(t, ValidateExportPath("out/summary.json"))

	extra := t.TempDir()
	assert.NoError(t, ValidateExportPath(filepath.Join(extra, "a.xlsx"), extra))
	assert.Error(t, ValidateExportPath("/etc/fms/summary.json"))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"session-1", "session-1"},
		{"clinic A / visit 2", "clinic_A_visit_2"},
		{"../../etc/passwd", "etc_passwd"},
		{"", "unknown"},
		{"***", "unknown"},
		{"4b1c6c2e-9f0a-4f4e-9d43-3c2b1f1f7a10", "4b1c6c2e-9f0a-4f4e-9d43-3c2b1f1f7a10"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
	assert.Len(t, SanitizeFilename(strings.Repeat("a", 500)), maxFilenameLen)
}
