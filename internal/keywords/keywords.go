// Package keywords maintains the search-phrase list used by the scan
// pipeline. A seed list of facility/expansion phrases is expanded by an
// LLM and cached in the store for a week.
package keywords

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/llm"
	"github.com/sells-group/lead-master/internal/store"
)

// Seeds are the base phrases every keyword set contains. The LLM
// expansion adds variants; these always survive a provider outage.
var Seeds = []string{
	"plant expansion",
	"groundbreaking",
	"distribution center",
	"warehouse",
	"cold storage",
	"factory",
	"manufacturing facility",
	"acquire site",
	"buys land",
	"facility renovation",
}

const expansionSystem = "You generate news-search keywords for industrial facility expansion tracking. Respond with one keyword phrase per line and nothing else."

// Expander produces and caches the keyword list.
type Expander struct {
	store       store.Store
	provider    llm.Provider
	ttl         time.Duration
	maxKeywords int
}

// NewExpander wires an expander over the given store and LLM provider.
// The provider may be nil, in which case only the seed list is used.
func NewExpander(st store.Store, provider llm.Provider, ttlDays, maxKeywords int) *Expander {
	if ttlDays <= 0 {
		ttlDays = 7
	}
	if maxKeywords <= 0 {
		maxKeywords = 60
	}
	return &Expander{
		store:       st,
		provider:    provider,
		ttl:         time.Duration(ttlDays) * 24 * time.Hour,
		maxKeywords: maxKeywords,
	}
}

// Keywords returns the current keyword list, refreshing it via the LLM
// when the cached set is older than the TTL. Provider failures fall back
// to the cached or seed list rather than aborting a scan.
func (e *Expander) Keywords(ctx context.Context) ([]string, error) {
	cached, err := e.store.GetKeywordCache(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "keywords: read cache")
	}
	if cached != nil && time.Since(cached.Updated) < e.ttl && len(cached.Keywords) > 0 {
		return cached.Keywords, nil
	}

	expanded, err := e.expand(ctx)
	if err != nil {
		zap.L().Warn("keyword expansion failed, using fallback",
			zap.Error(err),
		)
		if cached != nil && len(cached.Keywords) > 0 {
			return cached.Keywords, nil
		}
		return Seeds, nil
	}

	if err := e.store.PutKeywordCache(ctx, expanded, time.Now().UTC()); err != nil {
		return nil, eris.Wrap(err, "keywords: write cache")
	}
	return expanded, nil
}

// Refresh forces a new expansion regardless of cache age.
func (e *Expander) Refresh(ctx context.Context) ([]string, error) {
	expanded, err := e.expand(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.store.PutKeywordCache(ctx, expanded, time.Now().UTC()); err != nil {
		return nil, eris.Wrap(err, "keywords: write cache")
	}
	return expanded, nil
}

func (e *Expander) expand(ctx context.Context) ([]string, error) {
	if e.provider == nil {
		return nil, eris.New("keywords: no llm provider configured")
	}

	prompt := fmt.Sprintf(
		"Expand this list of news-search phrases for tracking companies that are building, expanding, or acquiring industrial facilities in the US. Keep every original phrase, add related phrases, and return at most %d total, one per line:\n\n%s",
		e.maxKeywords, strings.Join(Seeds, "\n"),
	)

	resp, err := e.provider.Complete(ctx, llm.Request{
		System: expansionSystem,
		Prompt: prompt,
	})
	if err != nil {
		return nil, eris.Wrap(err, "keywords: expand")
	}

	parsed := parseKeywordList(resp.Text, e.maxKeywords)
	if len(parsed) == 0 {
		return nil, eris.New("keywords: empty expansion response")
	}
	return mergeSeeds(parsed, e.maxKeywords), nil
}

// parseKeywordList splits a completion into clean phrases, stripping
// bullets and numbering the model sometimes adds despite instructions.
func parseKeywordList(text string, max int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(text, "\n") {
		kw := cleanKeyword(line)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
		if len(out) >= max {
			break
		}
	}
	return out
}

func cleanKeyword(line string) string {
	kw := strings.TrimSpace(line)
	kw = strings.TrimLeft(kw, "-*• \t")
	// drop "1." / "12)" style prefixes
	if i := strings.IndexAny(kw, ".)"); i > 0 && i <= 3 {
		if isDigits(kw[:i]) {
			kw = strings.TrimSpace(kw[i+1:])
		}
	}
	kw = strings.Trim(kw, `"`)
	if len(kw) < 3 || len(kw) > 80 {
		return ""
	}
	return kw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// mergeSeeds guarantees the seed phrases are present, seeds first.
func mergeSeeds(expanded []string, max int) []string {
	seen := make(map[string]struct{}, len(Seeds))
	out := make([]string, 0, max)
	for _, s := range Seeds {
		seen[strings.ToLower(s)] = struct{}{}
		out = append(out, s)
	}
	for _, kw := range expanded {
		if _, dup := seen[strings.ToLower(kw)]; dup {
			continue
		}
		seen[strings.ToLower(kw)] = struct{}{}
		out = append(out, kw)
		if len(out) >= max {
			break
		}
	}
	return out
}
