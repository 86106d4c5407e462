package collect

import (
	"html"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Caps runaway feeds that republish their whole archive.
const maxPerFeed = 50

// FeedEntry is one feed item reduced to what the articles table stores.
type FeedEntry struct {
	Link          string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Summary       string
}

func parseFeed(parser *gofeed.Parser, feedURL string, cutoff time.Time) ([]FeedEntry, error) {
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return nil, err
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		if entry := entryFromItem(item, cutoff); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

// entryFromItem converts a feed item, or returns nil when the item has no
// usable link or title, or predates the cutoff. Undated items are kept.
func entryFromItem(item *gofeed.Item, cutoff time.Time) *FeedEntry {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return nil
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}

	entry := &FeedEntry{Link: link, Title: title}
	if published != nil {
		if published.Before(cutoff) {
			return nil
		}
		entry.PublishedDate = published.Format("2006-01-02")
	}

	if item.Content != "" {
		entry.Summary = stripHTML(item.Content)
	} else if item.Description != "" {
		entry.Summary = stripHTML(item.Description)
	}
	return entry
}

// stripHTML drops tags, unescapes entities, and collapses whitespace. Feed
// summaries only need to be embeddable text, not faithful HTML.
func stripHTML(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}
