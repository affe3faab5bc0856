package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/intel"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/patterns"
)

// FeedSources names where threat feeds are read from. Empty fields are skipped.
type FeedSources struct {
	Dir     string
	URL     string
	Fetcher *intel.Fetcher
}

// LoadLibrary folds every available feed document over the bundled lists.
// A feed that cannot be read is logged and skipped, so the result is never
// weaker than the bundled library.
func LoadLibrary(ctx context.Context, src FeedSources, log *zap.Logger) (*patterns.Library, []string) {
	if log == nil {
		log = zap.NewNop()
	}

	var docs []*intel.Document
	if src.Dir != "" {
		loaded, err := intel.LoadDir(src.Dir)
		if err != nil {
			log.Warn("threat feed directory skipped", zap.String("dir", src.Dir), zap.Error(err))
		} else {
			docs = append(docs, loaded...)
		}
	}

	if src.URL != "" {
		fetcher := src.Fetcher
		if fetcher == nil {
			fetcher = intel.NewFetcher(intel.DefaultFetcherConfig())
		}
		doc, err := fetcher.Fetch(ctx, src.URL)
		if err != nil {
			log.Warn("remote threat feed skipped", zap.String("url", src.URL), zap.Error(err))
		} else {
			docs = append(docs, doc)
		}
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc.Name)
	}
	lib := intel.Build(docs...)
	malicious, phishing := lib.DomainCount()
	log.Info("threat library ready",
		zap.Strings("feeds", names),
		zap.Int("malicious_domains", malicious),
		zap.Int("phishing_domains", phishing))
	return lib, names
}
