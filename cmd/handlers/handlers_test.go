package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audiencelens/internal/core"
)

func writePostsFile(t *testing.T) string {
	t.Helper()
	sentiments := []float64{0.8, 0.9, 0.85, -0.7, -0.8, -0.75, 0.0, 0.05, -0.05}
	engagements := []float64{90, 95, 88, 85, 80, 82, 10, 12, 8}

	items := make([]string, len(sentiments))
	for i := range sentiments {
		items[i] = fmt.Sprintf(`{"id":"p%d","content":"post %d","sentiment":%v,"engagement":%v,"platform":"x"}`,
			i, i, sentiments[i], engagements[i])
	}

	path := filepath.Join(t.TempDir(), "posts.json")
	if err := os.WriteFile(path, []byte(`{"posts":[`+strings.Join(items, ",")+`]}`), 0644); err != nil {
		t.Fatalf("Failed to write posts file: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClusterCmd_JSON(t *testing.T) {
	path := writePostsFile(t)

	out, err := execute(t, "cluster", "--input", path, "--k", "3", "--seed", "42", "--query", "acme", "--format", "json")
	if err != nil {
		t.Fatalf("cluster failed: %v\n%s", err, out)
	}

	var result core.ClusteringResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Output is not a JSON result: %v\n%s", err, out)
	}
	if result.TotalPoints != 9 || result.NumClusters != 3 || result.Query != "acme" || result.Seed != 42 {
		t.Errorf("Unexpected result: total=%d clusters=%d query=%q seed=%d",
			result.TotalPoints, result.NumClusters, result.Query, result.Seed)
	}
}

func TestClusterCmd_Text(t *testing.T) {
	path := writePostsFile(t)

	out, err := execute(t, "cluster", "--input", path, "--k", "3", "--seed", "7", "--algorithm", "dbscan")
	if err != nil {
		t.Fatalf("cluster failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Audience clusters", "dbscan→kmeans", "Brand Champions"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestClusterCmd_MarkdownReport(t *testing.T) {
	path := writePostsFile(t)
	dir := t.TempDir()

	out, err := execute(t, "cluster", "--input", path, "--k", "2", "--seed", "3", "--output", dir)
	if err != nil {
		t.Fatalf("cluster failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Report written to") {
		t.Errorf("Expected report path in output, got %q", out)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "clusters_*.md"))
	if len(matches) != 1 {
		t.Errorf("Expected one report file, found %v", matches)
	}
}

func TestClusterCmd_Errors(t *testing.T) {
	path := writePostsFile(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"cluster"}, "either --input or --from-db"},
		{"both inputs", []string{"cluster", "--input", path, "--from-db"}, "mutually exclusive"},
		{"bad k", []string{"cluster", "--input", path, "--k", "11"}, "numClusters"},
		{"too few posts", []string{"cluster", "--input", path, "--k", "10"}, "need at least 10 posts"},
		{"bad format", []string{"cluster", "--input", path, "--format", "yaml"}, "unknown output format"},
		{"missing file", []string{"cluster", "--input", filepath.Join(t.TempDir(), "none.json")}, "failed to load posts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFeaturesCmd(t *testing.T) {
	path := writePostsFile(t)

	out, err := execute(t, "features", "--input", path, "--features", "sentiment,content", "--json")
	if err != nil {
		t.Fatalf("features failed: %v\n%s", err, out)
	}

	var decoded struct {
		Features []string     `json:"features"`
		Posts    []featureRow `json:"posts"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, out)
	}
	if len(decoded.Posts) != 9 {
		t.Fatalf("Expected 9 rows, got %d", len(decoded.Posts))
	}
	for _, row := range decoded.Posts {
		if len(row.Vector) != len(decoded.Features) {
			t.Errorf("Row %s has %d values for %d features", row.PostID, len(row.Vector), len(decoded.Features))
		}
		for _, v := range row.Vector {
			if v < 0 || v > 1 {
				t.Errorf("Row %s has value %v outside [0,1]", row.PostID, v)
			}
		}
	}

	if _, err := execute(t, "features", "--input", path, "--features", "mood"); err == nil {
		t.Error("Expected error for unknown feature group")
	}
}

func TestFeaturesCmd_Text(t *testing.T) {
	out, err := execute(t, "features", "--input", writePostsFile(t))
	if err != nil {
		t.Fatalf("features failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "9 posts × 4 features") {
		t.Errorf("Unexpected header:\n%s", out)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "audiencelens "+Version) {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestImportCmd_RequiresInput(t *testing.T) {
	if _, err := execute(t, "import"); err == nil || !strings.Contains(err.Error(), "--input is required") {
		t.Errorf("Expected missing input error, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate kept %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate gave %q", got)
	}
}
