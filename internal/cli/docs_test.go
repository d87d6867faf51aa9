package cli

import (
	"testing"
	"time"

	"github.com/fbecker/strategraph/pkg/graph"
)

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"seconds", 20 * time.Second, "just now"},
		{"minutes", 30 * time.Minute, "30m ago"},
		{"hours", 5 * time.Hour, "5h ago"},
		{"days", 72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatRelativeTime(time.Now().Add(-tt.ago))
			if got != tt.want {
				t.Errorf("formatRelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
			}
		})
	}
}

func TestFormatRelativeTimeFallsBackToDate(t *testing.T) {
	old := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)
	if got, want := formatRelativeTime(old), "Mar 9, 2024"; got != want {
		t.Errorf("formatRelativeTime(old) = %q, want %q", got, want)
	}
}

func TestBlockCounts(t *testing.T) {
	doc := graph.Document{Nodes: []graph.Node{
		{ID: "a", Type: "indicator"},
		{ID: "b", Type: "data-source"},
		{ID: "c", Type: "indicator"},
		{ID: "d", Type: "condition"},
	}}

	counts := blockCounts(doc)
	want := []typeCount{
		{blockType: "indicator", count: 2},
		{blockType: "data-source", count: 1},
		{blockType: "condition", count: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("got %d entries, want %d", len(counts), len(want))
	}
	for i, w := range want {
		if counts[i] != w {
			t.Errorf("counts[%d] = %+v, want %+v", i, counts[i], w)
		}
	}
}

func TestBlockCountsEmptyDocument(t *testing.T) {
	if counts := blockCounts(graph.Document{}); len(counts) != 0 {
		t.Errorf("got %d entries for empty document", len(counts))
	}
}
