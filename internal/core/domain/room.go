package domain

import (
	"fmt"
	"strings"
)

// RoomStatus is the canonical occupancy state of a room.
type RoomStatus string

const (
	RoomFree     RoomStatus = "free"
	RoomOccupied RoomStatus = "occupied"
)

// RoomStatuses is the closed set every label table must cover.
var RoomStatuses = []RoomStatus{RoomFree, RoomOccupied}

type Room struct {
	RoomID   int64   `json:"roomId"`
	RoomName string  `json:"roomName"`
	StoreID  int64   `json:"storeId,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Status   string  `json:"status"`
}

type Page struct {
	Number int
	Size   int
}

// WithDefaults fills the first page of eight rooms.
func (p Page) WithDefaults() Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = 8
	}
	return p
}

// LabelEntry binds one canonical status to its two textual encodings.
type LabelEntry struct {
	Status     RoomStatus `yaml:"status" json:"status"`
	Localized  string     `yaml:"localized" json:"localized"`
	Normalized string     `yaml:"normalized" json:"normalized"`
}

// Labels is the bidirectional mapping between canonical statuses, the
// localized label set the server speaks and the normalized set the cache
// keeps.
type Labels struct {
	entries    []LabelEntry
	localized  map[RoomStatus]string
	normalized map[RoomStatus]string
	parse      map[string]RoomStatus
}

// NewLabels validates that entries cover every status exactly once and that
// no label resolves to two statuses.
func NewLabels(entries []LabelEntry) (*Labels, error) {
	l := &Labels{
		entries:    make([]LabelEntry, 0, len(entries)),
		localized:  make(map[RoomStatus]string, len(entries)),
		normalized: make(map[RoomStatus]string, len(entries)),
		parse:      make(map[string]RoomStatus, len(entries)*3),
	}

	known := make(map[RoomStatus]bool, len(RoomStatuses))
	for _, s := range RoomStatuses {
		known[s] = true
	}

	for _, e := range entries {
		if !known[e.Status] {
			return nil, fmt.Errorf("unknown room status %q", e.Status)
		}
		if _, dup := l.localized[e.Status]; dup {
			return nil, fmt.Errorf("room status %q mapped twice", e.Status)
		}
		if e.Localized == "" || e.Normalized == "" {
			return nil, fmt.Errorf("room status %q has an empty label", e.Status)
		}
		for _, label := range []string{string(e.Status), e.Localized, e.Normalized} {
			key := labelKey(label)
			if prev, ok := l.parse[key]; ok && prev != e.Status {
				return nil, fmt.Errorf("label %q maps to both %q and %q", label, prev, e.Status)
			}
			l.parse[key] = e.Status
		}
		l.localized[e.Status] = e.Localized
		l.normalized[e.Status] = e.Normalized
		l.entries = append(l.entries, e)
	}

	for _, s := range RoomStatuses {
		if _, ok := l.localized[s]; !ok {
			return nil, fmt.Errorf("room status %q has no labels", s)
		}
	}
	return l, nil
}

// Parse resolves any known encoding to its canonical status.
func (l *Labels) Parse(label string) (RoomStatus, bool) {
	s, ok := l.parse[labelKey(label)]
	return s, ok
}

func (l *Labels) Localized(s RoomStatus) string {
	return l.localized[s]
}

func (l *Labels) Normalized(s RoomStatus) string {
	return l.normalized[s]
}

func (l *Labels) Entries() []LabelEntry {
	out := make([]LabelEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func labelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
