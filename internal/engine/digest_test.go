package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/yuehengyu/Lunara/internal/domain"
)

func matchFor(recipient, title string, offset int, occurrence time.Time) domain.Match {
	return domain.Match{
		Event: domain.Event{
			ID:          "evt-" + title,
			Title:       title,
			NextAlertAt: occurrence,
			Timezone:    "UTC",
			RecipientID: recipient,
		},
		OffsetMinutes: offset,
		AlertAt:       occurrence.Add(-time.Duration(offset) * time.Minute),
	}
}

func TestAggregate_GroupsByRecipient(t *testing.T) {
	occ := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	agg := NewAggregator(0)

	digests := agg.Aggregate([]domain.Match{
		matchFor("alice", "dentist", 30, occ),
		matchFor("bob", "rent", 0, occ),
		matchFor("alice", "flight", 60, occ),
	})

	if len(digests) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(digests))
	}
	// Output sorted by recipient.
	if digests[0].RecipientID != "alice" || digests[1].RecipientID != "bob" {
		t.Errorf("unexpected order: %s, %s", digests[0].RecipientID, digests[1].RecipientID)
	}
	if digests[0].ItemCount != 2 {
		t.Errorf("alice should have 2 items, got %d", digests[0].ItemCount)
	}
}

func TestAggregate_IdenticalLabelsCollapse(t *testing.T) {
	occ := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	agg := NewAggregator(0)

	// Same title, same offset: one listed item, singular title.
	digests := agg.Aggregate([]domain.Match{
		matchFor("alice", "dentist", 30, occ),
		matchFor("alice", "dentist", 30, occ),
	})

	if len(digests) != 1 {
		t.Fatalf("expected 1 digest, got %d", len(digests))
	}
	if digests[0].ItemCount != 1 {
		t.Errorf("identical labels should collapse, got %d items", digests[0].ItemCount)
	}
	if digests[0].Title != "1 reminder due" {
		t.Errorf("unexpected title %q", digests[0].Title)
	}
}

func TestAggregate_OverflowSummary(t *testing.T) {
	occ := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	agg := NewAggregator(2)

	// Two collapsing labels plus a third distinct one, preview 2:
	// the dentist pair collapses, leaving 3 distinct labels and an
	// "…and 1 more" tail.
	digests := agg.Aggregate([]domain.Match{
		matchFor("alice", "dentist", 30, occ),
		matchFor("alice", "dentist", 30, occ),
		matchFor("alice", "flight", 60, occ),
		matchFor("alice", "rent", 0, occ),
	})

	if len(digests) != 1 {
		t.Fatalf("expected 1 digest, got %d", len(digests))
	}
	d := digests[0]
	if d.ItemCount != 3 {
		t.Fatalf("expected 3 distinct items, got %d", d.ItemCount)
	}
	if !strings.Contains(d.Body, "…and 1 more") {
		t.Errorf("body missing overflow summary: %q", d.Body)
	}
	if lines := strings.Split(d.Body, "\n"); len(lines) != 3 {
		t.Errorf("preview 2 should list 2 labels plus the overflow line: %q", d.Body)
	}
	if d.Title != "3 reminders due" {
		t.Errorf("unexpected title %q", d.Title)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	occ := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	agg := NewAggregator(0)
	matches := []domain.Match{
		matchFor("carol", "a", 10, occ),
		matchFor("alice", "b", 20, occ),
		matchFor("bob", "c", 30, occ),
		matchFor("alice", "d", 40, occ),
	}

	first := agg.Aggregate(matches)
	second := agg.Aggregate(matches)
	if len(first) != len(second) {
		t.Fatalf("lengths diverged: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("digest %d diverged: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFormatLabel(t *testing.T) {
	occ := time.Date(2024, 5, 20, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{"at occurrence", 0, "dentist at 14:30"},
		{"minutes", 45, "dentist in 45 minutes"},
		{"one hour", 60, "dentist in 1 hour"},
		{"hours", 180, "dentist in 3 hours"},
		{"one day", 1440, "dentist in 1 day"},
		{"days", 4320, "dentist in 3 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatLabel(matchFor("alice", "dentist", tt.offset, occ))
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
