package handlers

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/x-way/crawlerdetect"

	"github.com/slidrapp/slidr/internal/broadcast"
	"github.com/slidrapp/slidr/internal/metrics"
)

// BotCacheControl is sent with rendered link previews.
const BotCacheControl = "public, max-age=3600, immutable"

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<link rel="icon" href="/favicon.ico" sizes="any" />
<link rel="icon" type="image/svg+xml" href="/icon.svg" />
<link rel="apple-touch-icon" href="/apple-touch-icon.png" />
<link rel="manifest" href="/manifest.webmanifest" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<meta property="og:title" content="Slidr.app - {{.Title}}">
<meta property="og:type" content="website" />
<meta property="og:image" content="{{.Image}}">
<meta property="og:url" content="{{.URL}}">
<meta name="twitter:card" content="summary_large_image">
<meta property="og:description" content="Interactive presentations, for free.">
<meta property="og:site_name" content="Slidr.app">
<meta name="twitter:image:alt" content="{{.Title}}">
</head>
<body>
<h1>{{.Title}}</h1>
<p>by {{.Username}}</p>
<img src="{{.Image}}" />
</body>
</html>
`))

type previewData struct {
	Title    string
	Username string
	Image    string
	URL      string
}

// RenderForBot serves a link preview to crawlers and sends everyone else to
// the app under /r.
func (h *Handler) RenderForBot(w http.ResponseWriter, r *http.Request) {
	appURL := "/r" + r.URL.RequestURI()

	ua := r.UserAgent()
	if !crawlerdetect.IsCrawler(ua) {
		h.logger.Debug().Str("path", r.URL.Path).Msg("not bot")
		metrics.BotRenders.WithLabelValues("redirect").Inc()
		http.Redirect(w, r, appURL, http.StatusFound)
		return
	}

	h.logger.Info().Str("user_agent", ua).Msg("bot")

	// /{prefix}/{id}
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 || !broadcast.ValidSlug(parts[2]) {
		h.logger.Warn().Str("path", r.URL.Path).Msg("unable to parse presentation id")
		metrics.BotRenders.WithLabelValues("redirect").Inc()
		http.Redirect(w, r, appURL, http.StatusFound)
		return
	}
	prefix, id := parts[1], parts[2]

	p, err := h.presentation(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("presentation", id).Msg("presentation lookup failed")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if p == nil {
		h.logger.Warn().Str("presentation", id).Msg("presentation not found")
		metrics.BotRenders.WithLabelValues("redirect").Inc()
		http.Redirect(w, r, appURL, http.StatusFound)
		return
	}

	slide := r.URL.Query().Get("slide")
	data := previewData{
		Title:    p.Title,
		Username: p.Username,
		Image:    p.PageURL(pageIndex(slide)),
		URL:      h.publicURL + "/" + prefix + "/" + id,
	}
	if r.URL.Query().Has("slide") {
		data.URL += "?slide=" + slide
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", BotCacheControl)
	w.WriteHeader(http.StatusOK)
	if err := previewTemplate.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Str("presentation", id).Msg("preview render failed")
		return
	}
	metrics.BotRenders.WithLabelValues("rendered").Inc()
}

// pageIndex converts the 1-based slide query value to a page index. Missing
// or unparsable values select the first page.
func pageIndex(slide string) int {
	n, err := strconv.Atoi(leadingDigits(slide))
	if err != nil {
		return 0
	}
	return max(n-1, 0)
}

// leadingDigits mirrors parseInt: an optional sign then digits, the rest ignored.
func leadingDigits(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
