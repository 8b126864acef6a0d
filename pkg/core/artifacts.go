// Package core provides the session contract, error taxonomy and result model for appcheck.
package core

// Attachment represents a debug artifact written during a scenario
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, hierarchy, report
	ContentType string `json:"contentType"` // MIME type: image/png, application/xml, text/plain
	Path        string `json:"path"`        // File path on disk
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentHierarchy  = "hierarchy"
	AttachmentReport     = "report"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeXML  = "application/xml"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
	}
}

// NewHierarchyAttachment creates a UI tree dump attachment
func NewHierarchyAttachment(path string) Attachment {
	return Attachment{
		Name:        AttachmentHierarchy,
		ContentType: ContentTypeXML,
		Path:        path,
	}
}

// NewReportAttachment creates a text report attachment
func NewReportAttachment(path string) Attachment {
	return Attachment{
		Name:        AttachmentReport,
		ContentType: ContentTypeText,
		Path:        path,
	}
}

// ArtifactConfig controls when and what diagnostics are captured
type ArtifactConfig struct {
	// When to capture
	CaptureOnFailure bool `yaml:"captureOnFailure" mapstructure:"capture_on_failure"` // Default: true
	CaptureOnSuccess bool `yaml:"captureOnSuccess" mapstructure:"capture_on_success"` // Default: false

	// What to capture
	Screenshot  bool `yaml:"screenshot" mapstructure:"screenshot"`     // Default: true
	UIHierarchy bool `yaml:"uiHierarchy" mapstructure:"ui_hierarchy"` // Default: true
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		CaptureOnSuccess: false,
		Screenshot:       true,
		UIHierarchy:      true,
	}
}

// ShouldCapture returns true if artifacts should be captured for the given status
func (c ArtifactConfig) ShouldCapture(status Status) bool {
	switch status {
	case StatusFailed, StatusErrored:
		return c.CaptureOnFailure
	case StatusPassed:
		return c.CaptureOnSuccess
	default:
		return false
	}
}
