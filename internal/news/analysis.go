package news

import (
	"sort"
	"strings"
	"unicode"
)

var positiveWords = []string{
	"win", "wins", "won", "approve", "approves", "approved", "passes", "passed", "surge",
	"rally", "gain", "gains", "record high", "beat", "beats", "agreement",
	"deal", "success", "confirmed", "victory", "rise", "rises", "up",
}

var negativeWords = []string{
	"lose", "loses", "lost", "reject", "rejected", "fails", "failed", "crash",
	"plunge", "drop", "drops", "fall", "falls", "decline", "defeat", "ban",
	"lawsuit", "indicted", "resigns", "war", "crisis", "down",
}

// CategoryKeywords maps a category name onto the keywords that place an article in it.
var CategoryKeywords = map[string][]string{
	"politics": {"election", "president", "senate", "congress", "vote", "governor", "campaign", "poll", "parliament", "minister"},
	"economy":  {"fed", "federal reserve", "interest rate", "inflation", "gdp", "jobs report", "unemployment", "recession", "tariff", "cpi"},
	"crypto":   {"bitcoin", "ethereum", "crypto", "btc", "eth", "sec", "etf", "stablecoin", "solana", "blockchain"},
	"sports":   {"nba", "nfl", "mlb", "nhl", "championship", "final", "super bowl", "world cup", "match", "tournament"},
	"tech":     {"ai", "openai", "apple", "google", "microsoft", "nvidia", "launch", "iphone", "chip", "antitrust"},
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "for": {}, "by": {}, "with": {}, "at": {}, "is": {}, "be": {}, "will": {},
	"are": {}, "was": {}, "it": {}, "as": {}, "from": {}, "this": {}, "that": {}, "before": {},
	"after": {}, "than": {}, "does": {}, "do": {}, "has": {}, "have": {},
}

const (
	minRelevance   = 0.3
	maxLocalResult = 10
)

// Analyzer annotates raw articles with sentiment, categories and a base relevance.
type Analyzer struct {
	categories []string
}

func NewAnalyzer(enabled []string) *Analyzer {
	var cats []string
	for _, c := range enabled {
		c = strings.ToLower(strings.TrimSpace(c))
		if _, ok := CategoryKeywords[c]; ok {
			cats = append(cats, c)
		}
	}
	if len(enabled) == 0 {
		for c := range CategoryKeywords {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)
	return &Analyzer{categories: cats}
}

func (a *Analyzer) Annotate(raw RawArticle) Article {
	text := strings.ToLower(raw.Title + " " + raw.Description)
	cats := a.Categorize(text)
	hits := 0
	for _, c := range cats {
		hits += countHits(text, CategoryKeywords[c])
	}
	return Article{
		Title:          raw.Title,
		Description:    raw.Description,
		URL:            raw.URL,
		Source:         raw.Source,
		PublishedAt:    raw.PublishedAt,
		Sentiment:      ClassifySentiment(text),
		RelevanceScore: clamp01(float64(hits) * 0.1),
		Categories:     cats,
	}
}

func (a *Analyzer) AnnotateAll(raw []RawArticle) []Article {
	out := make([]Article, 0, len(raw))
	for _, r := range raw {
		out = append(out, a.Annotate(r))
	}
	return out
}

// Categorize returns every enabled category with at least one keyword hit, sorted.
func (a *Analyzer) Categorize(text string) []string {
	text = strings.ToLower(text)
	out := []string{}
	for _, c := range a.categories {
		if countHits(text, CategoryKeywords[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// ClassifySentiment needs a margin of more than one hit to leave neutral.
func ClassifySentiment(text string) Sentiment {
	text = strings.ToLower(text)
	pos := countHits(text, positiveWords)
	neg := countHits(text, negativeWords)
	switch {
	case pos > neg+1:
		return SentimentPositive
	case neg > pos+1:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// MatchArticlesLocally scores articles against query without any network call.
// Articles under 0.3 are dropped; ties keep input order; at most 10 are returned.
func MatchArticlesLocally(articles []Article, query string) []Article {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}
	scored := make([]Article, 0, len(articles))
	for _, a := range articles {
		s := Relevance(a, terms)
		if s < minRelevance {
			continue
		}
		a.RelevanceScore = s
		scored = append(scored, a)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	if len(scored) > maxLocalResult {
		scored = scored[:maxLocalResult]
	}
	return scored
}

// Relevance is 2x the keyword overlap ratio plus 0.3 per term found in the
// article text, clamped to [0,1].
func Relevance(a Article, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	text := strings.ToLower(a.Text())
	words := map[string]struct{}{}
	for _, w := range tokenize(text) {
		words[w] = struct{}{}
	}
	overlap := 0
	raw := 0
	for _, t := range terms {
		if _, ok := words[t]; ok {
			overlap++
		}
		if strings.Contains(text, t) {
			raw++
		}
	}
	union := len(words) + len(terms) - overlap
	keyword := 0.0
	if union > 0 {
		keyword = float64(overlap) / float64(union)
	}
	return clamp01(2*keyword + 0.3*float64(raw))
}

func queryTerms(query string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range tokenize(strings.ToLower(query)) {
		if _, stop := stopWords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// countHits counts keywords present in text. Single words must match a whole
// token; phrases match as substrings.
func countHits(text string, keywords []string) int {
	tokens := map[string]struct{}{}
	for _, w := range tokenize(text) {
		tokens[w] = struct{}{}
	}
	n := 0
	for _, k := range keywords {
		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				n++
			}
			continue
		}
		if _, ok := tokens[k]; ok {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Dedupe merges lists keeping the first article seen for each exact title.
func Dedupe(lists ...[]Article) []Article {
	seen := map[string]struct{}{}
	out := []Article{}
	for _, list := range lists {
		for _, a := range list {
			if _, ok := seen[a.Title]; ok {
				continue
			}
			seen[a.Title] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
