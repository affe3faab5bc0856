package events

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func event(typ threat.EventType, level threat.Level, tab, url string, at time.Duration) Event {
	return Event{
		Type:      typ,
		Level:     level,
		TabID:     tab,
		URL:       url,
		Timestamp: base.Add(at),
	}
}

func TestAppendFillsIdentity(t *testing.T) {
	l := NewLog(WithClock(func() time.Time { return base }))

	e := l.Append(Event{Type: threat.MaliciousScript, Level: threat.High, TabID: "tab"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, base, e.Timestamp)
	assert.Equal(t, 1, l.Len())

	created := New(threat.PhishingAttempt, threat.High, "tab", "https://x.example", "lure", true).
		WithMetadata(map[string]string{"brand": "paypal"})
	stored := l.Append(created)
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, "paypal", stored.Metadata["brand"])
}

func TestThreatScore(t *testing.T) {
	l := NewLog()

	l.Append(event(threat.PhishingAttempt, threat.High, "tab", "", 0))
	l.Append(event(threat.DataExfiltration, threat.High, "tab", "", 0))
	l.Append(event(threat.DataExfiltration, threat.Medium, "tab", "", 0))

	assert.Equal(t, 120, l.ThreatScore("tab"))
	assert.Equal(t, map[threat.Category]int{
		threat.CategoryPhishing: 1,
		threat.CategoryTracking: 2,
	}, l.Threats("tab"))

	assert.Equal(t, 120, l.UpdateThreatScore("tab"))
	assert.Equal(t, 120, l.UpdateThreatScore("tab"))
	assert.Equal(t, 120, l.ThreatScore("tab"))
}

func TestThreatScoreWeights(t *testing.T) {
	tests := []struct {
		typ  threat.EventType
		want int
	}{
		{threat.SuspiciousDownload, 100},
		{threat.PhishingAttempt, 80},
		{threat.Cryptojacking, 60},
		{threat.MaliciousScript, 40},
		{threat.DataExfiltration, 20},
		{threat.XSSAttempt, 0},
		{threat.SQLInjection, 0},
		{threat.CSPViolation, 0},
		{threat.Clickjacking, 0},
		{threat.UnauthorizedAccess, 0},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			l := NewLog()
			l.Append(event(tt.typ, threat.Low, "tab", "", 0))
			assert.Equal(t, tt.want, l.ThreatScore("tab"))
			assert.Contains(t, l.Contexts(), "tab")
		})
	}
}

func TestUnknownTabScoresZero(t *testing.T) {
	l := NewLog()
	assert.Zero(t, l.ThreatScore("nobody"))
	assert.Zero(t, l.UpdateThreatScore("nobody"))
	assert.Empty(t, l.Threats("nobody"))
	assert.Empty(t, l.Contexts())
}

func TestClearContext(t *testing.T) {
	l := NewLog()
	l.Append(event(threat.SuspiciousDownload, threat.Critical, "a", "", 0))
	l.Append(event(threat.SuspiciousDownload, threat.Critical, "a", "", 1))
	l.Append(event(threat.Cryptojacking, threat.High, "b", "", 2))

	assert.Equal(t, 2, l.ClearContext("a"))
	assert.Zero(t, l.ThreatScore("a"))
	assert.Empty(t, l.Threats("a"))
	assert.Empty(t, l.Events(Filter{TabID: "a"}))
	assert.Equal(t, []string{"b"}, l.Contexts())

	assert.Equal(t, 60, l.ThreatScore("b"))
	assert.Len(t, l.Events(Filter{TabID: "b"}), 1)
	assert.Zero(t, l.ClearContext("a"))
}

func TestEventsFilter(t *testing.T) {
	l := NewLog()
	l.Append(event(threat.MaliciousScript, threat.Medium, "a", "", 0))
	l.Append(event(threat.PhishingAttempt, threat.High, "a", "", time.Minute))
	blocked := event(threat.SuspiciousDownload, threat.Critical, "b", "", 2*time.Minute)
	blocked.Blocked = true
	l.Append(blocked)

	yes := true
	assert.Len(t, l.Events(Filter{}), 3)
	assert.Len(t, l.Events(Filter{TabID: "a"}), 2)
	assert.Len(t, l.Events(Filter{MinLevel: threat.High}), 2)
	assert.Len(t, l.Events(Filter{Types: []threat.EventType{threat.PhishingAttempt, threat.SuspiciousDownload}}), 2)
	assert.Len(t, l.Events(Filter{Since: base.Add(time.Minute)}), 2)
	assert.Len(t, l.Events(Filter{Until: base}), 1)
	assert.Len(t, l.Events(Filter{Blocked: &yes}), 1)

	latest := l.Events(Filter{Limit: 1})
	require.Len(t, latest, 1)
	assert.Equal(t, threat.SuspiciousDownload, latest[0].Type)

	assert.NotNil(t, l.Events(Filter{TabID: "missing"}))
}

func TestRetention(t *testing.T) {
	l := NewLog(WithRetention(3))
	for i := 0; i < 5; i++ {
		l.Append(event(threat.MaliciousScript, threat.Low, "tab", "", time.Duration(i)))
	}

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 2, l.Evicted())
	assert.Equal(t, base.Add(2), l.Events(Filter{})[0].Timestamp)
	assert.Equal(t, 200, l.ThreatScore("tab"))
}

func TestUnboundedByDefault(t *testing.T) {
	for _, l := range []*Log{NewLog(), NewLog(WithRetention(0)), NewLog(WithRetention(-1))} {
		for i := 0; i < 50; i++ {
			l.Append(event(threat.MaliciousScript, threat.Low, "tab", "", time.Duration(i)))
		}
		assert.Equal(t, 50, l.Len())
		assert.Zero(t, l.Evicted())
	}
}

func TestSubscribe(t *testing.T) {
	l := NewLog()
	stream, cancel := l.Subscribe(4)

	sent := l.Append(event(threat.XSSAttempt, threat.High, "tab", "", 0))
	select {
	case got := <-stream:
		assert.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("event not published")
	}

	cancel()
	cancel()
	_, open := <-stream
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	l := NewLog()
	_, cancel := l.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			l.Append(event(threat.MaliciousScript, threat.Low, "tab", "", 0))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("append blocked on a full subscriber")
	}
	assert.Equal(t, 10, l.Len())
}

func TestCloseEndsSubscriptions(t *testing.T) {
	l := NewLog()
	stream, cancel := l.Subscribe(1)
	l.Close()

	_, open := <-stream
	assert.False(t, open)
	assert.NotPanics(t, cancel)
}

func TestConcurrentAppend(t *testing.T) {
	l := NewLog()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.Append(event(threat.Cryptojacking, threat.High, fmt.Sprintf("tab-%d", w%2), "", 0))
				l.ThreatScore("tab-0")
				l.UpdateThreatScore("tab-1")
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 400, l.Len())
	assert.Equal(t, 200*60, l.ThreatScore("tab-0"))
	assert.Equal(t, 200*60, l.ThreatScore("tab-1"))
}

func TestGenerateReportEmpty(t *testing.T) {
	l := NewLog(WithClock(func() time.Time { return base }))

	r := l.GenerateReport(base.Add(-time.Hour), base)
	assert.NotEmpty(t, r.ID)
	assert.Zero(t, r.TotalEvents)
	assert.NotNil(t, r.TopThreats)
	assert.Empty(t, r.TopThreats)
	assert.NotNil(t, r.AffectedDomains)
	assert.Empty(t, r.AffectedDomains)
	assert.NotNil(t, r.Recommendations)
	assert.Empty(t, r.Recommendations)
	assert.Len(t, r.BySeverity, len(threat.Levels))
}

func TestGenerateReport(t *testing.T) {
	l := NewLog(WithClock(func() time.Time { return base.Add(time.Hour) }))

	l.Append(event(threat.PhishingAttempt, threat.High, "a", "https://Login.Example.com/x", 0))
	l.Append(event(threat.PhishingAttempt, threat.High, "a", "https://login.example.com/y", 1))
	l.Append(event(threat.Cryptojacking, threat.High, "b", "https://miner.example", 2))
	l.Append(event(threat.XSSAttempt, threat.Medium, "b", "::not a url::", 3))
	l.Append(event(threat.MaliciousScript, threat.Critical, "b", "", 4))
	l.Append(event(threat.SuspiciousDownload, threat.Critical, "c", "https://cdn.example/f.exe", 5))
	l.Append(event(threat.DataExfiltration, threat.Low, "c", "https://a.example", 6))
	// outside the range
	l.Append(event(threat.Clickjacking, threat.Low, "c", "https://late.example", 2*time.Hour))

	r := l.GenerateReport(base, base.Add(time.Minute))
	assert.Equal(t, 7, r.TotalEvents)
	assert.Equal(t, map[threat.Level]int{
		threat.None:     0,
		threat.Low:      1,
		threat.Medium:   1,
		threat.High:     3,
		threat.Critical: 2,
	}, r.BySeverity)

	assert.Equal(t, []TypeCount{
		{threat.PhishingAttempt, 2},
		{threat.MaliciousScript, 1},
		{threat.SuspiciousDownload, 1},
		{threat.DataExfiltration, 1},
		{threat.XSSAttempt, 1},
	}, r.TopThreats)

	assert.Equal(t, []string{
		"a.example", "cdn.example", "login.example.com", "miner.example", UnknownDomain,
	}, r.AffectedDomains)

	assert.Equal(t, []string{
		RecommendPhishing,
		RecommendDownloads,
		RecommendScripts,
		RecommendMining,
		RecommendExfiltration,
		RecommendInjection,
	}, r.Recommendations)
}

func TestGenerateReportHighVolume(t *testing.T) {
	l := NewLog()
	for i := 0; i < HighVolumeThreshold+1; i++ {
		l.Append(event(threat.CSPViolation, threat.Low, "tab", "https://example.com", time.Duration(i)))
	}

	r := l.GenerateReport(time.Time{}, time.Time{})
	assert.Equal(t, HighVolumeThreshold+1, r.TotalEvents)
	assert.Equal(t, []string{RecommendHighVolume}, r.Recommendations)

	r = l.GenerateReport(base, base.Add(HighVolumeThreshold-1))
	assert.Equal(t, HighVolumeThreshold, r.TotalEvents)
	assert.Empty(t, r.Recommendations)
}

func TestExportReport(t *testing.T) {
	l := NewLog(WithClock(func() time.Time { return base }))
	l.Append(event(threat.PhishingAttempt, threat.High, "a", "https://x.example", 0))
	r := l.GenerateReport(base.Add(-time.Minute), base.Add(time.Minute))

	var buf bytes.Buffer
	require.NoError(t, ExportReport(&buf, r))
	assert.Equal(t, []byte{0x1f, 0x8b}, buf.Bytes()[:2])

	got, err := ReadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.TopThreats, got.TopThreats)
	assert.Equal(t, r.AffectedDomains, got.AffectedDomains)

	_, err = ReadReport(bytes.NewReader([]byte("plain")))
	assert.Error(t, err)
}
