package classifier

import "github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"

// DetectXSS reports whether input carries a cross-site scripting payload
func DetectXSS(input string) bool {
	return patterns.MatchesXSS(input)
}

// DetectSQLInjection reports whether input carries a SQL injection payload
func DetectSQLInjection(input string) bool {
	return patterns.MatchesSQLInjection(input)
}
