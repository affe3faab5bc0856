package classifier

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// MaxSafeDownloadSize is the size above which a payload is treated as medium risk
const MaxSafeDownloadSize = 100 * 1024 * 1024

// executableMIME lists detected types that run natively
var executableMIME = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-msdownload",
	"application/x-executable",
	"application/x-elf",
	"application/x-sharedlib",
	"application/x-mach-binary",
	"application/x-msi",
}

// DownloadReport explains a download classification
type DownloadReport struct {
	Level        threat.Level `json:"level"`
	Reasons      []string     `json:"reasons"`
	SHA256       string       `json:"sha256,omitempty"`
	DetectedMIME string       `json:"detectedMime,omitempty"`
	Size         int          `json:"size"`
}

// AnalyzeDownload returns the threat level of a download
func (c *Classifier) AnalyzeDownload(sourceURL, filename string, data []byte) threat.Level {
	return c.InspectDownload(sourceURL, filename, data).Level
}

// InspectDownload classifies a download as the maximum of its extension,
// size, content hash, detected content type and source URL risks. A nil
// payload skips the content checks.
func (c *Classifier) InspectDownload(sourceURL, filename string, data []byte) DownloadReport {
	report := DownloadReport{Level: threat.None, Reasons: []string{}}
	raise := func(level threat.Level, reason string) {
		report.Level = threat.Max(report.Level, level)
		report.Reasons = append(report.Reasons, reason)
	}

	dangerousExt := c.lib.IsDangerousExtension(filename)
	if dangerousExt {
		raise(threat.High, "dangerous file extension")
	}

	if data != nil {
		report.Size = len(data)
		if len(data) > MaxSafeDownloadSize {
			raise(threat.Medium, "file exceeds 100MB")
		}

		sum := sha256.Sum256(data)
		report.SHA256 = hex.EncodeToString(sum[:])
		if c.source.IsKnownMalwareHash(report.SHA256) {
			raise(threat.Critical, "content matches known malware hash")
		}

		detected := mimetype.Detect(data)
		report.DetectedMIME = detected.String()
		if !dangerousExt && isExecutable(detected) {
			raise(threat.High, "executable content behind a non-executable name")
		}
	}

	if urlLevel := c.CheckURL(sourceURL); urlLevel.AtLeast(threat.Medium) {
		raise(urlLevel, "download source is "+urlLevel.String()+" risk")
	}

	return report
}

func isExecutable(m *mimetype.MIME) bool {
	for _, t := range executableMIME {
		if m.Is(t) {
			return true
		}
	}
	return false
}
