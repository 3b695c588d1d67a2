// ABOUTME: Recency bucket grouping for the conversation sidebar
// ABOUTME: Boundaries are the caller-local midnights, not rolling 24h windows

package directory

import (
	"sort"
	"time"
)

// Buckets holds the directory grouped by recency. Each slice is sorted
// by UpdatedAt descending; ties keep their fetch order.
type Buckets struct {
	Today     []Conversation
	Yesterday []Conversation
	Week      []Conversation
	Older     []Conversation
}

// Empty reports whether no bucket holds any conversation.
func (b Buckets) Empty() bool {
	return len(b.Today) == 0 && len(b.Yesterday) == 0 && len(b.Week) == 0 && len(b.Older) == 0
}

// Buckets groups the cached conversations relative to now. The day
// boundary is midnight in now's location, so 11pm yesterday is
// "Yesterday" even when it is two hours old.
func (s *Service) Buckets(now time.Time) Buckets {
	conversations := s.List()
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	var b Buckets
	for _, c := range conversations {
		switch {
		case c.UpdatedAt.After(today) || c.UpdatedAt.Equal(today):
			b.Today = append(b.Today, c)
		case c.UpdatedAt.After(yesterday) || c.UpdatedAt.Equal(yesterday):
			b.Yesterday = append(b.Yesterday, c)
		case c.UpdatedAt.After(weekAgo):
			b.Week = append(b.Week, c)
		default:
			b.Older = append(b.Older, c)
		}
	}
	return b
}
