package patterns

import "strings"

// HasSuspiciousShape applies the domain-shape heuristics: raw IP literal,
// multi-hyphen name, five or more consecutive digits, or a label of twenty
// or more characters.
func HasSuspiciousShape(host string) bool {
	host = normalizeDomain(host)
	return ipLiteral.MatchString(host) ||
		multiHyphen.MatchString(host) ||
		consecutiveDigits.MatchString(host) ||
		longLabel.MatchString(host)
}

// HasPhishingIndicators reports a brand name co-occurring with an account
// lure keyword anywhere in the URL.
func HasPhishingIndicators(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, brand := range phishingBrands {
		if strings.Contains(lower, brand) {
			return phishingKeyword.MatchString(lower)
		}
	}
	return false
}

// HasDynamicEval detects eval-like constructs
func HasDynamicEval(content string) bool {
	return dynamicEval.MatchString(content)
}

// HasEncodedSequences detects long escaped character runs and decoder calls
func HasEncodedSequences(content string) bool {
	return encodedSeq.MatchString(content)
}

// HasInsecureFormMarkup is the text fallback for insecure form detection
func HasInsecureFormMarkup(content string) bool {
	if insecureFormAction.MatchString(content) {
		return true
	}
	return passwordInput.MatchString(content) && !autocompleteDisabled.MatchString(content)
}

// HasExfiltrationIndicators requires a storage read together with an outbound request
func HasExfiltrationIndicators(content string) bool {
	return storageRead.MatchString(content) && outboundRequest.MatchString(content)
}

// HasMiningIndicators detects mining library names, or worker/WASM
// instantiation combined with hashing calls
func HasMiningIndicators(content string) bool {
	lower := strings.ToLower(content)
	for _, lib := range miningLibraries {
		if strings.Contains(lower, lib) {
			return true
		}
	}
	return workerSpawn.MatchString(content) && hashingCall.MatchString(content)
}

// MatchesXSS reports whether input matches any cross-site scripting pattern
func MatchesXSS(input string) bool {
	for _, re := range xssPatterns {
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

// MatchesSQLInjection reports whether input matches any SQL injection pattern
func MatchesSQLInjection(input string) bool {
	for _, re := range sqlInjectionPatterns {
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

// AutocompleteDisabled reports whether an autocomplete attribute value turns autofill off
func AutocompleteDisabled(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "off" || v == "new-password"
}
