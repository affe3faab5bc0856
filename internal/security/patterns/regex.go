package patterns

import (
	"regexp"
	"strings"
)

// URL and domain shape heuristics
var (
	ipLiteral         = regexp.MustCompile(`^(?:\d{1,3}\.){3}\d{1,3}$|^\[?[0-9a-f]*:[0-9a-f:.]*\]?$`)
	multiHyphen       = regexp.MustCompile(`[a-z0-9]+-[a-z0-9]+-[a-z0-9]+`)
	consecutiveDigits = regexp.MustCompile(`\d{5,}`)
	longLabel         = regexp.MustCompile(`(?:^|\.)[a-z0-9-]{20,}(?:\.|$)`)
	phishingKeyword   = regexp.MustCompile(`(?i)security|verify|update|\bid\b`)
)

// Deep scan heuristics
var (
	dynamicEval = regexp.MustCompile(`(?i)\beval\s*\(|new\s+Function\s*\(|setTimeout\s*\(\s*["']|setInterval\s*\(\s*["']|document\.write\s*\(`)
	encodedSeq  = regexp.MustCompile(`(?i)(?:\\x[0-9a-f]{2}){4,}|(?:\\u[0-9a-f]{4}){4,}|(?:%[0-9a-f]{2}){6,}|\batob\s*\(|\bunescape\s*\(|String\.fromCharCode\s*\(`)

	insecureFormAction   = regexp.MustCompile(`(?i)<form[^>]{0,512}action\s*=\s*["']?http://`)
	passwordInput        = regexp.MustCompile(`(?i)<input[^>]{0,512}type\s*=\s*["']?password`)
	autocompleteDisabled = regexp.MustCompile(`(?i)autocomplete\s*=\s*["']?(?:off|new-password)`)

	storageRead     = regexp.MustCompile(`(?i)document\.cookie|localStorage\.getItem|localStorage\[|sessionStorage\.getItem|indexedDB\.open`)
	outboundRequest = regexp.MustCompile(`(?i)\bfetch\s*\(|XMLHttpRequest|navigator\.sendBeacon|new\s+Image\s*\(\s*\)\.src|\.src\s*=\s*["']https?://`)

	workerSpawn = regexp.MustCompile(`(?i)new\s+Worker\s*\(|WebAssembly\.instantiate|WebAssembly\.compile`)
	hashingCall = regexp.MustCompile(`(?i)sha256|sha-256|keccak|blake2|cryptonight|\bhash\s*\(|\.digest\s*\(`)
)

// Input validation
var (
	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*script\b`),
		regexp.MustCompile(`(?i)<\s*iframe\b`),
		regexp.MustCompile(`(?i)<\s*object\b`),
		regexp.MustCompile(`(?i)<\s*embed\b`),
		regexp.MustCompile(`(?i)\bon[a-z]{2,20}\s*=`),
		regexp.MustCompile(`(?i)javascript\s*:`),
	}

	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)['"]\s*or\s+['"]?\w{1,32}['"]?\s*=\s*['"]?\w{1,32}`),
		regexp.MustCompile(`(?i)\bor\s+\d{1,10}\s*=\s*\d{1,10}`),
		regexp.MustCompile(`(?i)\bunion\s+(?:all\s+)?select\b`),
		regexp.MustCompile(`(?i)\bdrop\s+(?:table|database|schema)\b`),
		regexp.MustCompile(`(?i)\binsert\s+into\b`),
		regexp.MustCompile(`(?i)\bdelete\s+from\b`),
		regexp.MustCompile(`(?i)\bupdate\s+\w{1,64}\s+set\b`),
		regexp.MustCompile(`--|/\*|\*/`),
	}
)

// Sanitization
var (
	ScriptBlock      = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	JavaScriptScheme = regexp.MustCompile(`(?i)javascript\s*:`)
)

// EventHandlerAttributes are stripped from markup during sanitization
var EventHandlerAttributes = []string{
	"onclick", "ondblclick", "onload", "onunload", "onerror",
	"onmouseover", "onmouseout", "onmousedown", "onmouseup",
	"onkeydown", "onkeyup", "onkeypress", "onfocus", "onblur",
	"onchange", "onsubmit", "onreset", "oninput", "onanimationstart",
}

// EventHandlerAttr matches one inline event-handler attribute with its value
var EventHandlerAttr = buildEventHandlerPattern()

func buildEventHandlerPattern() *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s+(?:` + strings.Join(EventHandlerAttributes, "|") + `)\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
}
