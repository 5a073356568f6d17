package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"audiencelens/internal/analysis"
	"audiencelens/internal/config"
	"audiencelens/internal/core"
	"audiencelens/internal/sentiment"
	"audiencelens/internal/sources"
)

type fakeSource struct {
	posts   []core.Post
	pingErr error
	query   sources.PostQuery
}

func (f *fakeSource) Posts(ctx context.Context, q sources.PostQuery) ([]core.Post, error) {
	f.query = q
	return f.posts, nil
}

func (f *fakeSource) Ping(ctx context.Context) error {
	return f.pingErr
}

func newTestServer(opts ...Option) *Server {
	cfg := config.Server{
		RequestTimeout: 10 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
	return New(analysis.NewAnalyzer(analysis.DefaultOptions()),
		sources.NewNormalizer(sentiment.NewSentimentAnalyzer()), cfg, opts...)
}

func ninePostsJSON() string {
	sentiments := []float64{0.8, 0.9, 0.85, -0.7, -0.8, -0.75, 0.0, 0.05, -0.05}
	engagements := []float64{90, 95, 88, 85, 80, 82, 10, 12, 8}

	items := make([]string, len(sentiments))
	for i := range sentiments {
		items[i] = fmt.Sprintf(`{"id":"p%d","content":"post","sentiment":%v,"engagement":%v}`, i, sentiments[i], engagements[i])
	}
	return "[" + strings.Join(items, ",") + "]"
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/clusters", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

func TestCreateClusters_Inline(t *testing.T) {
	s := newTestServer()
	rec := post(t, s, `{"query":"acme","algorithm":"kmeans","numClusters":3,"featureGroups":["sentiment","engagement"],"seed":42,"posts":`+ninePostsJSON()+`}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var result core.ClusteringResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.TotalPoints != 9 || result.NumClusters != 3 || result.Query != "acme" {
		t.Errorf("Unexpected result: total=%d clusters=%d query=%q", result.TotalPoints, result.NumClusters, result.Query)
	}
	if len(result.DataPoints) != 9 || result.DataPoints[0].PostID != "p0" {
		t.Errorf("Expected data points in input order, got %+v", result.DataPoints)
	}
}

func TestCreateClusters_ScoresMissingSentiment(t *testing.T) {
	s := newTestServer()
	body := `{"numClusters":2,"seed":1,"posts":[
		{"content":"I love it, amazing"},
		{"content":"best purchase, fantastic"},
		{"content":"worst thing ever, broken"},
		{"content":"terrible, I hate it"}]}`

	rec := post(t, s, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result core.ClusteringResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	for _, dp := range result.DataPoints {
		if dp.PostID == "" {
			t.Error("Expected generated post id")
		}
	}
}

func TestCreateClusters_Errors(t *testing.T) {
	threePosts := `[{"id":"a","sentiment":0.1},{"id":"b","sentiment":0.2},{"id":"c","sentiment":0.3}]`

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantKind    core.ErrorKind
		minRequired int
	}{
		{"k too small", `{"numClusters":1,"posts":` + ninePostsJSON() + `}`, http.StatusBadRequest, core.KindInvalidRequest, 0},
		{"k too large", `{"numClusters":11,"posts":` + ninePostsJSON() + `}`, http.StatusBadRequest, core.KindInvalidRequest, 0},
		{"no posts", `{"numClusters":3}`, http.StatusBadRequest, core.KindInvalidRequest, 0},
		{"unknown algorithm", `{"numClusters":3,"algorithm":"affinity","posts":` + ninePostsJSON() + `}`, http.StatusBadRequest, core.KindInvalidRequest, 0},
		{"insufficient data", `{"numClusters":5,"posts":` + threePosts + `}`, http.StatusUnprocessableEntity, core.KindInsufficientData, 5},
		{"malformed json", `{"numClusters":`, http.StatusBadRequest, core.KindInvalidRequest, 0},
		{"unknown source", `{"numClusters":3,"source":"kafka"}`, http.StatusBadRequest, core.KindInvalidRequest, 0},
		{"database not configured", `{"numClusters":3,"source":"database"}`, http.StatusBadRequest, core.KindInvalidRequest, 0},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			body := decodeError(t, rec)
			if body.Kind != string(tt.wantKind) {
				t.Errorf("Expected kind %q, got %q", tt.wantKind, body.Kind)
			}
			if body.MinRequired != tt.minRequired {
				t.Errorf("Expected min_required %d, got %d", tt.minRequired, body.MinRequired)
			}
			if body.Error == "" {
				t.Error("Expected error message")
			}
		})
	}
}

func TestCreateClusters_BodyTooLarge(t *testing.T) {
	s := New(analysis.NewAnalyzer(analysis.DefaultOptions()), sources.NewNormalizer(nil),
		config.Server{MaxBodyBytes: 64})

	rec := post(t, s, `{"numClusters":3,"posts":`+ninePostsJSON()+`}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d", rec.Code)
	}
}

func TestCreateClusters_MissingSentimentWithoutScorer(t *testing.T) {
	s := New(analysis.NewAnalyzer(analysis.DefaultOptions()), sources.NewNormalizer(nil),
		config.Server{})

	rec := post(t, s, `{"numClusters":2,"posts":[{"content":"a"},{"content":"b"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateClusters_Database(t *testing.T) {
	posts := make([]core.Post, 6)
	for i := range posts {
		e := float64(10 * i)
		posts[i] = core.Post{ID: fmt.Sprintf("db-%d", i), Sentiment: float64(i%2)*1.6 - 0.8, Engagement: &e}
	}
	source := &fakeSource{posts: posts}
	s := newTestServer(WithSource(source))

	rec := post(t, s, `{"numClusters":2,"source":"database","platform":"x","query":"acme","runId":"run-7","limit":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	want := sources.PostQuery{Platform: "x", Query: "acme", RunID: "run-7", Limit: 100}
	if source.query != want {
		t.Errorf("Expected query %+v, got %+v", want, source.query)
	}

	rec = post(t, s, `{"numClusters":2,"source":"database","posts":`+ninePostsJSON()+`}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when mixing inline posts with database source, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.NewError(core.KindInvalidRequest, "bad"), http.StatusBadRequest},
		{core.NewError(core.KindInvalidClusterCount, "bad k"), http.StatusBadRequest},
		{core.InsufficientData(2, 4), http.StatusUnprocessableEntity},
		{&core.AnalysisError{Kind: core.KindCanceled, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{fmt.Errorf("query failed: %w", errors.New("connection reset")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantStatus int
		wantDB     string
	}{
		{"no database", nil, http.StatusOK, ""},
		{"database ok", []Option{WithSource(&fakeSource{})}, http.StatusOK, "ok"},
		{"database down", []Option{WithSource(&fakeSource{pingErr: errors.New("refused")})}, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestServer(tt.opts...).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode health body: %v", err)
			}
			if body.Checks["database"] != tt.wantDB {
				t.Errorf("Expected database check %q, got %q", tt.wantDB, body.Checks["database"])
			}
		})
	}
}

func TestStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(WithVersion("1.2.3")).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode status body: %v", err)
	}
	if body.Version != "1.2.3" || body.DatabaseSource {
		t.Errorf("Unexpected status: %+v", body)
	}
	if len(body.FeatureGroups) != len(core.AllFeatureGroups) {
		t.Errorf("Expected all feature groups, got %v", body.FeatureGroups)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("Expected nosniff header, got %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clusters", bytes.NewReader(nil)))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
