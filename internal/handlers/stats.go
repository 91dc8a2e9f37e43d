package handlers

import (
	"net/http"
	"strconv"
	"time"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalPresentations int64              `json:"total_presentations"`
	TotalReactions     int64              `json:"total_reactions"`
	LastRendered       string             `json:"last_rendered"`
	Latest             []PresentationInfo `json:"latest"`
}

// Stats returns platform statistics for the landing page.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.store.CountPresentations(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count presentations")
		return
	}

	var reactions int64
	if h.redis != nil {
		// Non-fatal, the counter lives in the cache only
		if n, err := h.redis.TotalReactions(ctx); err == nil {
			reactions = n
		}
	}

	// Rendered documents are listed oldest first; the newest are at the end.
	offset := int(total) - 5
	if offset < 0 {
		offset = 0
	}
	docs, _, err := h.store.ListRenderedPresentations(ctx, 5, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list presentations")
		return
	}

	lastRendered := "nothing rendered yet"
	latest := make([]PresentationInfo, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		p := docs[i]
		info := PresentationInfo{
			ID:         p.ID,
			Title:      p.Title,
			Username:   p.Username,
			Cover:      p.PageURL(0),
			SlideCount: p.SlideCount(),
		}
		if p.Rendered != nil {
			info.Rendered = p.Rendered.UTC().Format(time.RFC3339)
			if i == len(docs)-1 {
				lastRendered = formatTimeAgo(*p.Rendered)
			}
		}
		latest = append(latest, info)
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalPresentations: total,
		TotalReactions:     reactions,
		LastRendered:       lastRendered,
		Latest:             latest,
	})
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	default:
		return plural(int(diff.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
