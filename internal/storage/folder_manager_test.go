package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFolderManager_EnsureTenantFolders(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	fm := NewFolderManager(tempDir, logger)

	t.Run("creates artifact folders", func(t *testing.T) {
		require.NoError(t, fm.EnsureTenantFolders("magerstav"))

		assert.DirExists(t, filepath.Join(tempDir, "magerstav", PDFFolder))
		assert.DirExists(t, filepath.Join(tempDir, "magerstav", XMLFolder))
		assert.DirExists(t, filepath.Join(tempDir, "magerstav", ReportFolder))
	})

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, fm.EnsureTenantFolders("magerstav"))
		require.NoError(t, fm.EnsureTenantFolders("magerstav"))
	})

	t.Run("rejects empty tenant", func(t *testing.T) {
		assert.Error(t, fm.EnsureTenantFolders("  "))
	})
}

func TestFolderManager_Paths(t *testing.T) {
	tempDir := t.TempDir()
	fm := NewFolderManager(tempDir, zap.NewNop())
	received := time.Date(2025, 9, 16, 8, 30, 5, 0, time.UTC)

	assert.Equal(t,
		filepath.Join(tempDir, "magerstav", "xml", "20250123.xml"),
		fm.XMLPath("magerstav", "20250123"))

	assert.Equal(t,
		filepath.Join(tempDir, "magerstav", "pdf", "20250916_083005_abcdef012345_faktura_123.pdf"),
		fm.PDFPath("magerstav", received, "abcdef0123456789", "faktura 123.pdf"))

	assert.Equal(t,
		filepath.Join(tempDir, "magerstav", "reports", "summary_2025-09-16.xlsx"),
		fm.ReportPath("magerstav", received))
}

func TestFolderManager_SanitizeName(t *testing.T) {
	fm := NewFolderManager(t.TempDir(), zap.NewNop())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid name unchanged", "ABC123-XYZ_456", "ABC123-XYZ_456"},
		{"removes path separators", "ABC/123\\XYZ", "ABC123XYZ"},
		{"removes parent directory references", "../../../etc/passwd", "etcpasswd"},
		{"replaces spaces", "faktura 123.pdf", "faktura_123.pdf"},
		{"empty becomes placeholder", "..", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fm.SanitizeName(tt.input))
		})
	}
}
