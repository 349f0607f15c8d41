package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
	"github.com/roshanmishra15/site-builder/internal/projects/service"
)

// streamTimeline streams a project's timeline using Server-Sent Events: the
// current view first, then every item appended while the client listens.
func (h *Handler) streamTimeline(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	ctx := c.Request.Context()

	if _, err := h.projects.Get(ctx, projectID, userID); err != nil {
		h.fail(c, err, "Project not found")
		return
	}

	// Subscribe before reading the view so nothing falls between the two.
	items, err := h.events.Subscribe(ctx, projectID)
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}

	view, err := h.timeline.View(ctx, projectID, userID)
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Streaming unsupported"})
		return
	}

	writeEvent(c, "initial", view)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case item, open := <-items:
			if !open {
				return
			}
			// A version only reaches the stream when it was just made current.
			var current *string
			if item.Kind == domain.KindVersion && item.Version != nil {
				current = &item.Version.ID
			}
			if err := writeEvent(c, "item", service.Present(item, current)); err != nil {
				logging.FromContext(ctx, h.logger).Warn("write timeline event", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(c *gin.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	return err
}
