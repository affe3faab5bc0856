package classifier

import (
	"strings"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// ScanCategory is one of the independent deep scan detectors
type ScanCategory string

const (
	CategoryScript       ScanCategory = "script"
	CategoryForms        ScanCategory = "forms"
	CategoryExfiltration ScanCategory = "exfiltration"
	CategoryMining       ScanCategory = "mining"
)

// Weight returns the category's contribution to the risk score
func (c ScanCategory) Weight() float64 {
	switch c {
	case CategoryScript:
		return 0.30
	case CategoryForms:
		return 0.20
	case CategoryExfiltration:
		return 0.40
	case CategoryMining:
		return 0.25
	default:
		return 0
	}
}

// SafeRecommendation is returned when a scan finds nothing
const SafeRecommendation = "No threats detected. It is safe to continue browsing this page."

// Finding is a single deep scan detection
type Finding struct {
	Category    ScanCategory     `json:"category"`
	Type        threat.EventType `json:"type"`
	Level       threat.Level     `json:"level"`
	Description string           `json:"description"`
}

// ScanResult is the outcome of a deep scan
type ScanResult struct {
	URL             string    `json:"url"`
	Threats         []Finding `json:"threats"`
	Recommendations []string  `json:"recommendations"`
	RiskScore       float64   `json:"riskScore"`
}

// MaxLevel returns the highest finding level
func (r ScanResult) MaxLevel() threat.Level {
	level := threat.None
	for _, f := range r.Threats {
		level = threat.Max(level, f.Level)
	}
	return level
}

type detector struct {
	category       ScanCategory
	event          threat.EventType
	level          threat.Level
	description    string
	recommendation string
}

var detectors = []detector{
	{
		category:       CategoryScript,
		event:          threat.MaliciousScript,
		level:          threat.High,
		description:    "Obfuscated or dynamically evaluated script detected",
		recommendation: "Disable JavaScript for this site or raise its sandbox level.",
	},
	{
		category:       CategoryForms,
		event:          threat.UnauthorizedAccess,
		level:          threat.Medium,
		description:    "Form may submit credentials without encryption or autofill protection",
		recommendation: "Do not enter passwords or personal data into forms on this page.",
	},
	{
		category:       CategoryExfiltration,
		event:          threat.DataExfiltration,
		level:          threat.High,
		description:    "Page reads stored credentials and sends outbound requests",
		recommendation: "Clear cookies and site data for this domain and avoid signing in.",
	},
	{
		category:       CategoryMining,
		event:          threat.Cryptojacking,
		level:          threat.High,
		description:    "Cryptocurrency mining code detected",
		recommendation: "Close this page. It appears to run a cryptocurrency miner.",
	},
}

// DeepScan inspects page content for the four scan categories. The risk
// score is the unclamped sum of the weights of every category found.
func (c *Classifier) DeepScan(pageURL, content string) ScanResult {
	if len(content) > MaxScanSize {
		content = content[:MaxScanSize]
	}

	corpus := content
	formsFound := false
	if doc, err := loadDocument(content); err == nil {
		if extra := inlineScripts(doc); len(extra) > 0 {
			corpus = content + "\n" + strings.Join(extra, "\n")
		}
		formsFound = hasInsecureForms(doc, pageURL)
	} else {
		formsFound = patterns.HasInsecureFormMarkup(content)
	}

	hits := map[ScanCategory]bool{
		CategoryScript:       patterns.HasDynamicEval(corpus) || patterns.HasEncodedSequences(corpus),
		CategoryForms:        formsFound,
		CategoryExfiltration: patterns.HasExfiltrationIndicators(corpus),
		CategoryMining:       patterns.HasMiningIndicators(corpus),
	}

	result := ScanResult{
		URL:             pageURL,
		Threats:         []Finding{},
		Recommendations: []string{},
	}
	for _, d := range detectors {
		if !hits[d.category] {
			continue
		}
		result.Threats = append(result.Threats, Finding{
			Category:    d.category,
			Type:        d.event,
			Level:       d.level,
			Description: d.description,
		})
		result.Recommendations = append(result.Recommendations, d.recommendation)
		result.RiskScore += d.category.Weight()
	}

	if len(result.Threats) == 0 {
		result.Recommendations = append(result.Recommendations, SafeRecommendation)
	}
	return result
}
