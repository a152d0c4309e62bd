package news

import "time"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Article is an annotated news item. Sentiment, relevance and categories are
// computed once at ingestion and never recomputed.
type Article struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	Source         string    `json:"source"`
	PublishedAt    time.Time `json:"published_at"`
	Sentiment      Sentiment `json:"sentiment"`
	RelevanceScore float64   `json:"relevance_score"`
	Categories     []string  `json:"categories"`
}

// RawArticle is the upstream shape before annotation.
type RawArticle struct {
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt time.Time
}

func (a Article) Text() string {
	return a.Title + " " + a.Description
}
