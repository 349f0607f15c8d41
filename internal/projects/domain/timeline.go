package domain

import (
	"sort"
	"time"
)

// ItemKind discriminates the two timeline cases.
type ItemKind string

const (
	KindConversation ItemKind = "conversation"
	KindVersion      ItemKind = "version"
)

// TimelineItem is either a conversation entry or a version. Exactly one of
// Conversation and Version is set, matching Kind.
type TimelineItem struct {
	Kind         ItemKind           `json:"kind"`
	CreatedAt    time.Time          `json:"created_at"`
	Seq          int64              `json:"seq"`
	Conversation *ConversationEntry `json:"conversation,omitempty"`
	Version      *Version           `json:"version,omitempty"`
}

func ConversationItem(e ConversationEntry) TimelineItem {
	return TimelineItem{Kind: KindConversation, CreatedAt: e.CreatedAt, Seq: e.Seq, Conversation: &e}
}

func VersionItem(v Version) TimelineItem {
	return TimelineItem{Kind: KindVersion, CreatedAt: v.CreatedAt, Seq: v.Seq, Version: &v}
}

// Before orders items by creation time, then by insertion sequence.
func (i TimelineItem) Before(o TimelineItem) bool {
	if !i.CreatedAt.Equal(o.CreatedAt) {
		return i.CreatedAt.Before(o.CreatedAt)
	}
	return i.Seq < o.Seq
}

// MergeTimeline merges entries and versions into one chronological sequence.
func MergeTimeline(entries []ConversationEntry, versions []Version) []TimelineItem {
	items := make([]TimelineItem, 0, len(entries)+len(versions))
	for _, e := range entries {
		items = append(items, ConversationItem(e))
	}
	for _, v := range versions {
		items = append(items, VersionItem(v))
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].Before(items[b]) })
	return items
}
