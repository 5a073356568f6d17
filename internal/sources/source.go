// Package sources loads posts for clustering from files and databases
package sources

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"audiencelens/internal/core"
)

// PostQuery selects which posts a source returns. Empty fields do not filter.
type PostQuery struct {
	Platform string
	Query    string
	RunID    string
	Limit    int
}

// PostSource supplies an immutable snapshot of posts for one analysis run
type PostSource interface {
	Posts(ctx context.Context, q PostQuery) ([]core.Post, error)
}

// Scorer assigns a sentiment score in [-1,1] to a post lacking one
type Scorer interface {
	ScorePost(post core.Post) float64
}

// WirePost is the interchange form of a post. Sentiment and engagement are pointers
// so that absent values can be told apart from zero.
type WirePost struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Sentiment  *float64   `json:"sentiment"`
	Engagement *float64   `json:"engagement"`
	Timestamp  *time.Time `json:"timestamp"`
	Platform   string     `json:"platform"`
}

// Normalizer turns wire posts into core posts: missing ids get a UUID and missing
// sentiment is scored when a scorer is configured, otherwise rejected
type Normalizer struct {
	scorer Scorer
}

// NewNormalizer creates a normalizer. A nil scorer rejects posts without sentiment.
func NewNormalizer(scorer Scorer) *Normalizer {
	return &Normalizer{scorer: scorer}
}

// Normalize converts wire posts, keeping their order
func (n *Normalizer) Normalize(wire []WirePost) ([]core.Post, error) {
	posts := make([]core.Post, 0, len(wire))
	for i, w := range wire {
		post := core.Post{
			ID:         strings.TrimSpace(w.ID),
			Content:    w.Content,
			Engagement: w.Engagement,
			Platform:   w.Platform,
		}
		if post.ID == "" {
			post.ID = uuid.New().String()
		}
		if w.Timestamp != nil {
			post.Timestamp = w.Timestamp.UTC()
		}

		switch {
		case w.Sentiment != nil && !math.IsNaN(*w.Sentiment):
			post.Sentiment = clamp(*w.Sentiment, -1, 1)
		case n.scorer != nil:
			post.Sentiment = n.scorer.ScorePost(post)
		default:
			return nil, core.NewError(core.KindInvalidRequest, "post %d (%s) has no sentiment score", i, post.ID)
		}

		posts = append(posts, post)
	}
	return posts, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// matches reports whether a post passes the platform filter
func (q PostQuery) matches(post core.Post) bool {
	return q.Platform == "" || strings.EqualFold(q.Platform, post.Platform)
}
