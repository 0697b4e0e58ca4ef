package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// Folder names used under every tenant folder
const (
	PDFFolder    = "pdf"
	XMLFolder    = "xml"
	ReportFolder = "reports"
)

// FolderManager lays out per-tenant artifact folders:
// {base}/{tenant}/pdf, {base}/{tenant}/xml and {base}/{tenant}/reports
type FolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewFolderManager creates a new FolderManager
func NewFolderManager(baseDir string, logger *zap.Logger) *FolderManager {
	return &FolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// EnsureTenantFolders creates the artifact folders of a tenant
func (m *FolderManager) EnsureTenantFolders(tenant string) error {
	if strings.TrimSpace(tenant) == "" {
		return fmt.Errorf("cannot create folders: empty tenant")
	}

	for _, folder := range []string{PDFFolder, XMLFolder, ReportFolder} {
		path := filepath.Join(m.TenantFolder(tenant), folder)
		if err := os.MkdirAll(path, 0755); err != nil {
			m.logger.Error("Failed to create tenant folder",
				zap.String("tenant", tenant),
				zap.String("folder_path", path),
				zap.Error(err))
			return fmt.Errorf("failed to create folder: %w", err)
		}
	}

	m.logger.Debug("Tenant folders ready", zap.String("tenant", tenant))
	return nil
}

// TenantFolder returns the root folder of a tenant
func (m *FolderManager) TenantFolder(tenant string) string {
	return filepath.Join(m.baseDir, m.SanitizeName(tenant))
}

// XMLPath returns the interchange document path, named by invoice number
func (m *FolderManager) XMLPath(tenant, invoiceNumber string) string {
	return filepath.Join(m.TenantFolder(tenant), XMLFolder, m.SanitizeName(invoiceNumber)+".xml")
}

// PDFPath returns the archive path of a source document. The name is
// stable for a given receive time, fingerprint and filename.
func (m *FolderManager) PDFPath(tenant string, received time.Time, fingerprint, filename string) string {
	short := fingerprint
	if len(short) > 12 {
		short = short[:12]
	}
	name := fmt.Sprintf("%s_%s_%s", received.UTC().Format("20060102_150405"), short, m.SanitizeName(filename))
	return filepath.Join(m.TenantFolder(tenant), PDFFolder, name)
}

// ReportPath returns the daily summary workbook path for a day
func (m *FolderManager) ReportPath(tenant string, day time.Time) string {
	return filepath.Join(m.TenantFolder(tenant), ReportFolder, "summary_"+day.Format("2006-01-02")+".xlsx")
}

// SanitizeName returns a filesystem-safe version of the name.
// Path separators and parent references are removed; other unsafe
// characters become underscores.
func (m *FolderManager) SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	name = unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, ".")
	if name == "" {
		return "unnamed"
	}
	return name
}
