package service

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// TimelineProjector merges a project's conversation and versions into one
// ordered view. It only reads.
type TimelineProjector struct {
	stores Stores
}

func NewTimelineProjector(stores Stores) *TimelineProjector {
	return &TimelineProjector{stores: stores}
}

// Project returns the timeline ordered by creation time, then insertion
// sequence. Repeated calls on an unchanged ledger return the same order.
func (p *TimelineProjector) Project(ctx context.Context, projectID string) ([]domain.TimelineItem, error) {
	entries, err := p.stores.Conversation.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	versions, err := p.stores.Versions.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return domain.MergeTimeline(entries, versions), nil
}

// TimelineEntry is a timeline item prepared for display.
type TimelineEntry struct {
	domain.TimelineItem
	IsCurrent bool   `json:"is_current,omitempty"`
	HTML      string `json:"html,omitempty"`
}

// TimelineView is an owner's timeline with the current version marked.
type TimelineView struct {
	ProjectID        string          `json:"project_id"`
	CurrentVersionID *string         `json:"current_version_index,omitempty"`
	Items            []TimelineEntry `json:"items"`
}

// View checks ownership, projects the timeline and renders conversation
// text as HTML. Raw HTML inside messages is not passed through.
func (p *TimelineProjector) View(ctx context.Context, projectID, userID string) (*TimelineView, error) {
	project, err := p.stores.Projects.GetOwned(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	items, err := p.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	view := &TimelineView{
		ProjectID:        project.ID,
		CurrentVersionID: project.CurrentVersionID,
		Items:            make([]TimelineEntry, 0, len(items)),
	}
	for _, item := range items {
		view.Items = append(view.Items, Present(item, project.CurrentVersionID))
	}
	return view, nil
}

// Present prepares one item for display.
func Present(item domain.TimelineItem, currentVersionID *string) TimelineEntry {
	entry := TimelineEntry{TimelineItem: item}
	switch item.Kind {
	case domain.KindVersion:
		entry.IsCurrent = currentVersionID != nil && item.Version != nil && item.Version.ID == *currentVersionID
	case domain.KindConversation:
		if item.Conversation != nil {
			entry.HTML = renderMarkdown(item.Conversation.Content)
		}
	}
	return entry
}

func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}
