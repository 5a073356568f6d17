package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"audiencelens/internal/core"
	"audiencelens/internal/logger"
)

// JSONFileSource reads posts from a JSON document holding either an array of posts
// or an object with a "posts" array
type JSONFileSource struct {
	path       string
	normalizer *Normalizer
	log        *slog.Logger
}

// NewJSONFileSource creates a source reading path on every call
func NewJSONFileSource(path string, normalizer *Normalizer) *JSONFileSource {
	return &JSONFileSource{
		path:       path,
		normalizer: normalizer,
		log:        logger.Get(),
	}
}

// Posts implements PostSource
func (s *JSONFileSource) Posts(ctx context.Context, q PostQuery) ([]core.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open posts file: %w", err)
	}
	defer f.Close()

	wire, err := DecodePosts(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	posts, err := s.normalizer.Normalize(wire)
	if err != nil {
		return nil, err
	}

	filtered := posts[:0]
	for _, post := range posts {
		if !q.matches(post) {
			continue
		}
		filtered = append(filtered, post)
		if q.Limit > 0 && len(filtered) >= q.Limit {
			break
		}
	}

	s.log.Debug("Loaded posts from file", "path", s.path, "total", len(posts), "selected", len(filtered))
	return filtered, nil
}

// DecodePosts reads a JSON array of posts or a {"posts": [...]} document
func DecodePosts(r io.Reader) ([]WirePost, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	if data[0] == '[' {
		var posts []WirePost
		if err := json.Unmarshal(data, &posts); err != nil {
			return nil, err
		}
		return posts, nil
	}

	var doc struct {
		Posts []WirePost `json:"posts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Posts, nil
}
