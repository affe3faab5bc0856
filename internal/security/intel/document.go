package intel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
)

// Format identifies a feed document encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Document is one threat feed
type Document struct {
	Name                string   `json:"name" yaml:"name" toml:"name"`
	MaliciousDomains    []string `json:"malicious_domains" yaml:"malicious_domains" toml:"malicious_domains"`
	PhishingDomains     []string `json:"phishing_domains" yaml:"phishing_domains" toml:"phishing_domains"`
	MalwareHashes       []string `json:"malware_hashes" yaml:"malware_hashes" toml:"malware_hashes"`
	DangerousExtensions []string `json:"dangerous_extensions" yaml:"dangerous_extensions" toml:"dangerous_extensions"`
	TrustedDomains      []string `json:"trusted_domains" yaml:"trusted_domains" toml:"trusted_domains"`
	TrackerPrefixes     []string `json:"tracker_prefixes" yaml:"tracker_prefixes" toml:"tracker_prefixes"`
}

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// Parse decodes a feed document
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	case FormatJSON:
		err = sonic.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported feed format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s feed: %w", format, err)
	}
	return &doc, nil
}

// LoadFile reads one feed document, choosing the decoder by extension
func LoadFile(path string) (*Document, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported feed file %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	return doc, nil
}

// LoadDir reads every feed document below dir. Files with other extensions
// are skipped. Documents are returned sorted by name.
func LoadDir(dir string) ([]*Document, error) {
	var (
		mu   sync.Mutex
		docs []*Document
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := FormatFromPath(p); !ok {
			return nil
		}

		doc, err := LoadFile(p)
		if err != nil {
			return err
		}

		mu.Lock()
		docs = append(docs, doc)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load feeds from %s: %w", dir, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Build folds documents over the bundled lists into a new library
func Build(docs ...*Document) *patterns.Library {
	var lists patterns.Lists
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		lists.MaliciousDomains = append(lists.MaliciousDomains, doc.MaliciousDomains...)
		lists.PhishingDomains = append(lists.PhishingDomains, doc.PhishingDomains...)
		lists.MalwareHashes = append(lists.MalwareHashes, doc.MalwareHashes...)
		lists.DangerousExtensions = append(lists.DangerousExtensions, doc.DangerousExtensions...)
		lists.TrustedDomains = append(lists.TrustedDomains, doc.TrustedDomains...)
		lists.TrackerPrefixes = append(lists.TrackerPrefixes, doc.TrackerPrefixes...)
	}
	return patterns.NewLibrary(lists)
}
