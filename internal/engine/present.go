package engine

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// StatusFilter narrows the marker list by status.
type StatusFilter string

// Status filters.
const (
	FilterAll       StatusFilter = "all"
	FilterAttention StatusFilter = "attention"
	FilterNormal    StatusFilter = "normal"
)

// SortMode orders markers for display.
type SortMode string

// Sort modes.
const (
	SortAttentionFirst SortMode = "attention-first"
	SortRecent         SortMode = "recent"
	SortAlphabetical   SortMode = "alphabetical"
)

// Grouping orders category groups for display.
type Grouping string

// Group orderings.
const (
	GroupFirstSeen   Grouping = "first-seen"
	GroupByCategory  Grouping = "category"
	GroupByAttention Grouping = "attention-count"
)

// DefaultCategory collects markers without a category.
const DefaultCategory = "Other"

// Query describes one presentation of the marker list.
type Query struct {
	Text     string       `json:"q,omitempty"`
	Status   StatusFilter `json:"status"`
	Sort     SortMode     `json:"sort"`
	Grouping Grouping     `json:"group"`
}

// Normalize fills empty fields with defaults.
func (q Query) Normalize() Query {
	if q.Status == "" {
		q.Status = FilterAll
	}
	if q.Sort == "" {
		q.Sort = SortAttentionFirst
	}
	if q.Grouping == "" {
		q.Grouping = GroupFirstSeen
	}
	return q
}

// Group is one category bucket of the presented marker list.
type Group struct {
	Category       string          `json:"category"`
	AttentionCount int             `json:"attention_count"`
	Markers        []MarkerHistory `json:"markers"`
}

// UrgencyRank orders statuses for attention-first sorting; lower is more
// urgent. Unrecognised statuses rank 3, between borderline and normal.
func UrgencyRank(s Status) int {
	switch s {
	case StatusCritical, StatusVeryHigh, StatusVeryLow:
		return 0
	case StatusHigh, StatusLow:
		return 1
	case StatusBorderline, StatusWarning:
		return 2
	case StatusNormal:
		return 4
	default:
		return 3
	}
}

// Present filters, sorts and groups histories. Every surviving marker
// lands in exactly one group, and ties are always broken by marker ID.
func Present(histories []MarkerHistory, q Query, locale language.Tag) []Group {
	q = q.Normalize()
	col := collate.New(locale, collate.IgnoreCase)

	needle := fold(q.Text)
	var selected []MarkerHistory
	for _, h := range histories {
		if matchesStatus(h, q.Status) && matchesText(h, needle) {
			selected = append(selected, h)
		}
	}

	byName := func(a, b MarkerHistory) int {
		return col.CompareString(a.Marker.Name, b.Marker.Name)
	}
	byRecent := func(a, b MarkerHistory) int {
		return b.Latest.Day().Compare(a.Latest.Day())
	}
	byID := func(a, b MarkerHistory) int {
		return cmp.Compare(a.Marker.ID, b.Marker.ID)
	}

	var keys []func(a, b MarkerHistory) int
	switch q.Sort {
	case SortRecent:
		keys = append(keys, byRecent)
	case SortAlphabetical:
		keys = append(keys, byName)
	default:
		keys = append(keys, func(a, b MarkerHistory) int {
			return cmp.Compare(UrgencyRank(a.Status), UrgencyRank(b.Status))
		}, byRecent, byName)
	}
	keys = append(keys, byID)

	slices.SortStableFunc(selected, func(a, b MarkerHistory) int {
		for _, k := range keys {
			if c := k(a, b); c != 0 {
				return c
			}
		}
		return 0
	})

	return groupByCategory(selected, q.Grouping, col)
}

func groupByCategory(sorted []MarkerHistory, grouping Grouping, col *collate.Collator) []Group {
	groups := []Group{}
	index := make(map[string]int)
	for _, h := range sorted {
		cat := strings.TrimSpace(h.Marker.Category)
		if cat == "" {
			cat = DefaultCategory
		}
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, Group{Category: cat})
		}
		groups[i].Markers = append(groups[i].Markers, h)
		if h.Status != StatusNormal {
			groups[i].AttentionCount++
		}
	}

	switch grouping {
	case GroupByCategory:
		slices.SortStableFunc(groups, func(a, b Group) int {
			return col.CompareString(a.Category, b.Category)
		})
	case GroupByAttention:
		slices.SortStableFunc(groups, func(a, b Group) int {
			if c := cmp.Compare(b.AttentionCount, a.AttentionCount); c != 0 {
				return c
			}
			return col.CompareString(a.Category, b.Category)
		})
	}
	return groups
}

func matchesStatus(h MarkerHistory, f StatusFilter) bool {
	switch f {
	case FilterAttention:
		return h.Status != StatusNormal
	case FilterNormal:
		return h.Status == StatusNormal
	default:
		return true
	}
}

func matchesText(h MarkerHistory, needle string) bool {
	if needle == "" {
		return true
	}
	m := h.Marker
	for _, field := range []string{m.Name, m.ShortName, m.Category, m.Unit} {
		if strings.Contains(fold(field), needle) {
			return true
		}
	}
	return false
}
