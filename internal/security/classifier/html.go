package classifier

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
)

// MaxScanSize bounds how much page content a deep scan inspects
const MaxScanSize = 10 * 1024 * 1024

// detectCharset guesses the encoding of raw page bytes
func detectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// loadDocument parses page content, transcoding non UTF-8 input first
func loadDocument(content string) (*goquery.Document, error) {
	if utf8.ValidString(content) {
		return goquery.NewDocumentFromReader(strings.NewReader(content))
	}

	data := []byte(content)
	reader, err := charset.NewReader(bytes.NewReader(data), "text/html; charset="+detectCharset(data))
	if err != nil {
		return goquery.NewDocumentFromReader(bytes.NewReader(data))
	}
	return goquery.NewDocumentFromReader(reader)
}

// inlineScripts collects script text the parser has entity-decoded:
// inline event handler values and javascript: link targets.
func inlineScripts(doc *goquery.Document) []string {
	if len(doc.Nodes) == 0 {
		return nil
	}
	root := doc.Nodes[0]

	var out []string
	for _, attr := range htmlquery.Find(root, "//@*[starts-with(name(), 'on')]") {
		out = append(out, htmlquery.InnerText(attr))
	}
	for _, attr := range htmlquery.Find(root, "//@href | //@src | //@action") {
		value := strings.TrimSpace(htmlquery.InnerText(attr))
		if loc := patterns.JavaScriptScheme.FindStringIndex(value); loc != nil && loc[0] == 0 {
			out = append(out, value[loc[1]:])
		}
	}
	return out
}

// hasInsecureForms reports forms that post over plain HTTP and password
// fields that leave autofill enabled.
func hasInsecureForms(doc *goquery.Document, pageURL string) bool {
	base, _ := url.Parse(pageURL)

	insecure := false
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		action, hasAction := form.Attr("action")
		if !hasAction && base == nil {
			return true
		}
		target, err := url.Parse(strings.TrimSpace(action))
		if err != nil {
			return true
		}
		if base != nil {
			target = base.ResolveReference(target)
		}
		if strings.EqualFold(target.Scheme, "http") {
			insecure = true
			return false
		}
		return true
	})
	if insecure {
		return true
	}

	doc.Find("input[type]").EachWithBreak(func(_ int, input *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(input.AttrOr("type", "")), "password") {
			return true
		}
		if value, ok := input.Attr("autocomplete"); ok && patterns.AutocompleteDisabled(value) {
			return true
		}
		if value, ok := input.Closest("form").Attr("autocomplete"); ok && patterns.AutocompleteDisabled(value) {
			return true
		}
		insecure = true
		return false
	})
	return insecure
}
