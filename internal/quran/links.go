// Package quran resolves mushaf page numbers to image links.
package quran

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"wirdbot/internal/domain"
	logx "wirdbot/pkg/logx"
)

type linkEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Links maps page numbers to image URLs. Entries come from an optional JSON
// file of {name, url} objects where the numeric prefix of name is the page
// ("23.jpg" -> 23). An optional URL template covers pages the file doesn't;
// with neither, lookups miss and the caller reports the missing link.
type Links struct {
	urls     map[int]string
	template string
}

func NewLinks(template string) Links {
	return Links{template: template}
}

// Load reads the links file at path. A missing or malformed file is logged
// and yields template-only links so the bot keeps running.
func Load(path, template string, log logx.Logger) Links {
	l := NewLinks(template)
	if path == "" {
		return l
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("quran links file unavailable; using URL template", logx.String("path", path), logx.Err(err))
		return l
	}

	var entries []linkEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Error("quran links file malformed; using URL template", logx.String("path", path), logx.Err(err))
		return l
	}

	urls := make(map[int]string, len(entries))
	for _, e := range entries {
		base := e.Name
		if i := strings.IndexByte(base, '.'); i >= 0 {
			base = base[:i]
		}
		page, err := strconv.Atoi(base)
		if err != nil || page < 1 || page > domain.PageCount || e.URL == "" {
			continue
		}
		urls[page] = e.URL
	}
	log.Info("quran links loaded", logx.String("path", path), logx.Int("pages", len(urls)))
	l.urls = urls
	return l
}

// Link returns the image URL for page n. ok is false when neither the links
// file nor the template covers the page; the caller sends the missing-link
// notice instead. Pages outside 1..604 are clamped so a corrupted stored
// page number still resolves.
func (l Links) Link(n int) (url string, ok bool) {
	if n < 1 {
		n = 1
	}
	if n > domain.PageCount {
		n = domain.PageCount
	}
	if u, found := l.urls[n]; found {
		return u, true
	}
	if l.template == "" {
		return "", false
	}
	return fmt.Sprintf(l.template, n), true
}
