// Package summarize produces one-line lead summaries from article
// headlines, caching completions by URL hash so re-scans never pay for
// the same article twice.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/llm"
	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/store"
)

const summarySystem = "You write one-sentence summaries of industrial expansion news for a sales team. Be factual, name the company and location when present, and never exceed 40 words."

// Summarizer turns headlines into cached one-line summaries.
type Summarizer struct {
	store    store.Store
	provider llm.Provider
}

// New wires a summarizer. The provider may be nil, in which case the
// headline itself is used as the summary.
func New(st store.Store, provider llm.Provider) *Summarizer {
	return &Summarizer{store: st, provider: provider}
}

// Summarize returns a summary for the article at url with the given
// headline, consulting the persistent cache first. Failures degrade to
// the raw headline so a scan never stalls on the provider, but only
// real completions are cached; a later run retries the provider.
func (s *Summarizer) Summarize(ctx context.Context, url, headline string) (string, error) {
	hash := model.HashURL(url)

	cached, ok, err := s.store.GetCachedSummary(ctx, hash)
	if err != nil {
		return "", eris.Wrap(err, "summarize: read cache")
	}
	if ok {
		return cached, nil
	}

	summary, ok := s.complete(ctx, headline)
	if !ok {
		return headline, nil
	}

	if err := s.store.PutCachedSummary(ctx, hash, summary); err != nil {
		return "", eris.Wrap(err, "summarize: write cache")
	}
	return summary, nil
}

// complete asks the provider for a summary. ok is false when there is
// no provider or the completion failed or came back empty.
func (s *Summarizer) complete(ctx context.Context, headline string) (string, bool) {
	if s.provider == nil {
		return "", false
	}

	resp, err := s.provider.Complete(ctx, llm.Request{
		System: summarySystem,
		Prompt: fmt.Sprintf("Summarize this headline for a lead record:\n\n%s", headline),
	})
	if err != nil {
		zap.L().Warn("summary completion failed, using headline",
			zap.Error(err),
		)
		return "", false
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", false
	}
	return summary, true
}
