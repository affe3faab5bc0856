package events

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
	"github.com/Ancillary-AGI/titan-sub001/internal/shared/id"
)

const (
	// TopThreatLimit is the number of event types ranked in a report
	TopThreatLimit = 5
	// HighVolumeThreshold is the event count above which a report suggests
	// reviewing browsing habits
	HighVolumeThreshold = 50
	// UnknownDomain stands in for URLs without a parsable host
	UnknownDomain = "unknown"
)

// Report recommendations
const (
	RecommendPhishing     = "Be cautious of phishing attempts. Verify website addresses before entering credentials."
	RecommendDownloads    = "Suspicious downloads were detected. Only download files from trusted sources."
	RecommendScripts      = "Malicious scripts were detected. Keep JavaScript disabled on untrusted sites."
	RecommendMining       = "Cryptocurrency mining scripts were detected. Consider a stricter sandbox level for affected sites."
	RecommendExfiltration = "Data exfiltration attempts were detected. Clear site data and review site permissions."
	RecommendInjection    = "Injection attempts were blocked. Avoid submitting untrusted content to web forms."
	RecommendHighVolume   = "A high number of security events was recorded. Review your browsing habits and security settings."
)

// recommendations maps event types to report advice in output order
var recommendations = []struct {
	types []threat.EventType
	text  string
}{
	{[]threat.EventType{threat.PhishingAttempt}, RecommendPhishing},
	{[]threat.EventType{threat.SuspiciousDownload}, RecommendDownloads},
	{[]threat.EventType{threat.MaliciousScript}, RecommendScripts},
	{[]threat.EventType{threat.Cryptojacking}, RecommendMining},
	{[]threat.EventType{threat.DataExfiltration}, RecommendExfiltration},
	{[]threat.EventType{threat.XSSAttempt, threat.SQLInjection}, RecommendInjection},
}

// TypeCount is one ranked event type
type TypeCount struct {
	Type  threat.EventType `json:"type"`
	Count int              `json:"count"`
}

// Report summarizes the events of a time range
type Report struct {
	ID              id.ReportID          `json:"id"`
	GeneratedAt     time.Time            `json:"generatedAt"`
	Start           time.Time            `json:"start"`
	End             time.Time            `json:"end"`
	TotalEvents     int                  `json:"totalEvents"`
	Blocked         int                  `json:"blocked"`
	BySeverity      map[threat.Level]int `json:"bySeverity"`
	TopThreats      []TypeCount          `json:"topThreats"`
	AffectedDomains []string             `json:"affectedDomains"`
	Recommendations []string             `json:"recommendations"`
}

// GenerateReport summarizes events with start <= timestamp <= end. A zero
// start means the beginning of the log and a zero end means now.
func (l *Log) GenerateReport(start, end time.Time) Report {
	now := l.now()
	if end.IsZero() {
		end = now
	}
	if start.After(end) {
		start, end = end, start
	}

	matched := l.Events(Filter{Since: start, Until: end})
	return buildReport(matched, start, end, now)
}

func buildReport(matched []Event, start, end, now time.Time) Report {
	r := Report{
		ID:              id.NewReportID(),
		GeneratedAt:     now,
		Start:           start,
		End:             end,
		TotalEvents:     len(matched),
		BySeverity:      make(map[threat.Level]int, len(threat.Levels)),
		TopThreats:      []TypeCount{},
		AffectedDomains: []string{},
		Recommendations: []string{},
	}
	for _, level := range threat.Levels {
		r.BySeverity[level] = 0
	}

	typeCounts := make(map[threat.EventType]int)
	domains := make(map[string]struct{})
	for _, e := range matched {
		r.BySeverity[e.Level]++
		typeCounts[e.Type]++
		domains[domainOf(e.URL)] = struct{}{}
		if e.Blocked {
			r.Blocked++
		}
	}

	r.TopThreats = rankTypes(typeCounts)

	for d := range domains {
		r.AffectedDomains = append(r.AffectedDomains, d)
	}
	sort.Strings(r.AffectedDomains)

	for _, rec := range recommendations {
		for _, t := range rec.types {
			if typeCounts[t] > 0 {
				r.Recommendations = append(r.Recommendations, rec.text)
				break
			}
		}
	}
	if len(matched) > HighVolumeThreshold {
		r.Recommendations = append(r.Recommendations, RecommendHighVolume)
	}
	return r
}

// rankTypes orders types by count, ties broken by declaration order
func rankTypes(counts map[threat.EventType]int) []TypeCount {
	ranked := []TypeCount{}
	for _, t := range threat.EventTypes {
		if n := counts[t]; n > 0 {
			ranked = append(ranked, TypeCount{Type: t, Count: n})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > TopThreatLimit {
		ranked = ranked[:TopThreatLimit]
	}
	return ranked
}

func domainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return UnknownDomain
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return UnknownDomain
	}
	return host
}
