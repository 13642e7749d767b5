package tool

import (
	"context"
	"sort"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	promptx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/prompt"
)

const maxManualHits = 3

type manualHit struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (r *Registry) searchManual(_ context.Context, args map[string]any, _ contractx.ToolEnv) contractx.ToolOutcome {
	keywords := stringArg(args, "keywords", "query")
	if keywords == "" {
		return failure("keywords is required")
	}

	items := matchManual(r.profile.Manual, keywords, maxManualHits)
	hits := make([]manualHit, 0, len(items))
	for _, it := range items {
		hits = append(hits, manualHit{Title: it.Title, Body: strings.TrimSpace(it.Body)})
	}
	return success(map[string]any{
		"keywords": keywords,
		"results":  hits,
	})
}

// matchManual ranks entries by how many search tokens overlap their keywords
// or title. Entries without keywords are general guidance and only returned
// when nothing else matches.
func matchManual(items []promptx.ManualItem, keywords string, limit int) []promptx.ManualItem {
	tokens := strings.FieldsFunc(strings.ToLower(keywords), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})

	type scored struct {
		item  promptx.ManualItem
		score int
	}
	var (
		ranked   []scored
		fallback []promptx.ManualItem
	)
	for _, it := range items {
		if len(it.Keywords) == 0 {
			fallback = append(fallback, it)
			continue
		}
		score := 0
		for _, tok := range tokens {
			if strings.Contains(strings.ToLower(it.Title), tok) {
				score++
			}
			for _, kw := range it.Keywords {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kw != "" && (strings.Contains(tok, kw) || strings.Contains(kw, tok)) {
					score++
				}
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{item: it, score: score})
		}
	}

	if len(ranked) == 0 {
		return fallback
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]promptx.ManualItem, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.item)
	}
	return out
}
