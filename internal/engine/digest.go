package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// DefaultPreviewCount caps how many labels a digest body lists before
// the overflow summary takes over.
const DefaultPreviewCount = 3

const minutesPerHour = 60
const minutesPerDay = 24 * 60

// Aggregator batches matched reminders into per-recipient payloads.
type Aggregator struct {
	previewCount int
}

// NewAggregator creates an aggregator with the given preview cap.
// Non-positive means DefaultPreviewCount.
func NewAggregator(previewCount int) *Aggregator {
	if previewCount <= 0 {
		previewCount = DefaultPreviewCount
	}
	return &Aggregator{previewCount: previewCount}
}

// Aggregate groups matched reminders by recipient and formats one
// batched notification per recipient. Identical formatted labels
// within a group collapse to a single item. Output is sorted by
// recipient id and labels are sorted within a group, so two
// independent drivers aggregating the same matches produce
// byte-identical payloads.
func (a *Aggregator) Aggregate(matches []domain.Match) []domain.Digest {
	byRecipient := make(map[string][]domain.Match)
	for _, m := range matches {
		byRecipient[m.Event.RecipientID] = append(byRecipient[m.Event.RecipientID], m)
	}

	digests := make([]domain.Digest, 0, len(byRecipient))
	for recipientID, group := range byRecipient {
		digests = append(digests, a.buildDigest(recipientID, group))
	}

	sort.Slice(digests, func(i, j int) bool {
		return digests[i].RecipientID < digests[j].RecipientID
	})
	return digests
}

func (a *Aggregator) buildDigest(recipientID string, group []domain.Match) domain.Digest {
	sort.Slice(group, func(i, j int) bool {
		if !group[i].AlertAt.Equal(group[j].AlertAt) {
			return group[i].AlertAt.Before(group[j].AlertAt)
		}
		return group[i].Event.Title < group[j].Event.Title
	})

	seen := make(map[string]struct{}, len(group))
	var labels []string
	for _, m := range group {
		label := FormatLabel(m)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	lines := labels
	if len(labels) > a.previewCount {
		lines = append(labels[:a.previewCount:a.previewCount],
			fmt.Sprintf("…and %d more", len(labels)-a.previewCount))
	}
	body := strings.Join(lines, "\n")

	title := fmt.Sprintf("%d reminders due", len(labels))
	if len(labels) == 1 {
		title = "1 reminder due"
	}

	return domain.Digest{
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		DedupeTag:   fmt.Sprintf("%s:%d", recipientID, group[0].AlertAt.Unix()),
		ItemCount:   len(labels),
	}
}

// FormatLabel renders one matched reminder as a human line. Offset 0
// is "at the occurrence itself"; a day or more reads in days; anything
// in between reads in hours or minutes.
func FormatLabel(m domain.Match) string {
	title := m.Event.Title
	switch {
	case m.OffsetMinutes == 0:
		at := m.Event.NextAlertAt.In(m.Event.Location())
		return fmt.Sprintf("%s at %s", title, at.Format("15:04"))
	case m.OffsetMinutes >= minutesPerDay:
		return fmt.Sprintf("%s in %s", title, plural(m.OffsetMinutes/minutesPerDay, "day"))
	case m.OffsetMinutes >= minutesPerHour:
		return fmt.Sprintf("%s in %s", title, plural(m.OffsetMinutes/minutesPerHour, "hour"))
	default:
		return fmt.Sprintf("%s in %s", title, plural(m.OffsetMinutes, "minute"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
