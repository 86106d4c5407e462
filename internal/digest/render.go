package digest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RenderMarkdown produces the digest body stored in the database and shown
// by the web server.
func RenderMarkdown(sections []Section, candidateCount int, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Policy Digest\n\n")
	fmt.Fprintf(&b, "_%s | %d articles considered_\n", now.Format("January 2, 2006"), candidateCount)

	for _, section := range sections {
		if len(section.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", section.Name)
		for _, item := range section.Items {
			tags := make([]string, 0, len(item.Anchors))
			for _, a := range item.Anchors {
				if len(tags) >= 3 {
					break
				}
				tags = append(tags, formatTag(a))
			}
			fmt.Fprintf(&b, "- [%s](%s) — _%s_ %s\n", item.Title, item.Link, item.SourceName, strings.Join(tags, " "))
		}
	}

	return b.String()
}

// RenderCard produces the Microsoft Teams Adaptive Card payload, wrapped in
// the message envelope the incoming-webhook endpoint expects.
func RenderCard(sections []Section, candidateCount int, now time.Time) map[string]any {
	body := []map[string]any{
		{
			"type":   "TextBlock",
			"size":   "Large",
			"weight": "Bolder",
			"text":   "Daily Policy Digest",
		},
		{
			"type":     "TextBlock",
			"size":     "Small",
			"isSubtle": true,
			"text":     fmt.Sprintf("%s | %d articles considered", now.Format("January 2, 2006"), candidateCount),
			"spacing":  "None",
		},
	}

	for i, section := range sections {
		isPriority := i == 0
		if !isPriority && len(section.Items) == 0 {
			continue
		}

		body = append(body, map[string]any{
			"type":    "Container",
			"spacing": "Large",
			"items": []map[string]any{
				{
					"type":   "TextBlock",
					"text":   section.Name,
					"weight": "Bolder",
					"size":   "Medium",
				},
			},
		})

		if isPriority && len(section.Items) == 0 {
			body = append(body, map[string]any{
				"type":     "TextBlock",
				"text":     "No priority highlights in this window.",
				"size":     "Small",
				"isSubtle": true,
			})
			continue
		}

		for _, item := range section.Items {
			tags := make([]string, 0, 3)
			for _, a := range item.Anchors {
				if len(tags) >= 3 {
					break
				}
				tags = append(tags, formatTag(a))
			}

			body = append(body, map[string]any{
				"type":    "Container",
				"spacing": "Medium",
				"items": []map[string]any{
					{
						"type":   "TextBlock",
						"text":   fmt.Sprintf("[%s](%s)", item.Title, item.Link),
						"wrap":   true,
						"weight": "Bolder",
					},
					{
						"type":    "ColumnSet",
						"spacing": "Small",
						"columns": []map[string]any{
							{
								"type":  "Column",
								"width": "stretch",
								"items": []map[string]any{
									{
										"type":     "TextBlock",
										"text":     fmt.Sprintf("_%s_", item.SourceName),
										"isSubtle": true,
										"size":     "Small",
										"wrap":     true,
									},
								},
							},
							{
								"type":  "Column",
								"width": "auto",
								"items": []map[string]any{
									{
										"type":                "TextBlock",
										"text":                strings.Join(tags, " "),
										"color":               "Good",
										"size":                "Small",
										"horizontalAlignment": "Right",
									},
								},
							},
						},
					},
				},
			})
		}
	}

	return map[string]any{
		"type": "message",
		"attachments": []map[string]any{
			{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": map[string]any{
					"type":    "AdaptiveCard",
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"version": "1.4",
					"body":    body,
				},
			},
		},
	}
}

var (
	tagCleanRe = regexp.MustCompile(`[^a-zA-Z0-9\s\-]`)
	tagSplitRe = regexp.MustCompile(`[\s\-]+`)
)

// formatTag shortens an anchor name into a hashtag, keeping a "PROG:"-style
// prefix and reducing long names to initials.
func formatTag(anchorName string) string {
	if anchorName == "" {
		return ""
	}
	if strings.HasPrefix(anchorName, "http") {
		return "#REF"
	}

	prefix := ""
	body := strings.TrimSpace(anchorName)
	if idx := strings.Index(anchorName, ":"); idx >= 0 {
		prefix = strings.ToUpper(strings.TrimSpace(anchorName[:idx]))
		body = strings.TrimSpace(anchorName[idx+1:])
	}

	clean := tagCleanRe.ReplaceAllString(body, "")
	words := tagSplitRe.Split(clean, -1)

	var initials string
	if len(words) == 1 && len(words[0]) < 10 {
		initials = words[0]
	} else {
		var b strings.Builder
		for _, w := range words {
			if w == "" {
				continue
			}
			b.WriteString(strings.ToUpper(w[:1]))
		}
		initials = b.String()
	}

	if prefix != "" {
		return "#" + prefix + ":" + initials
	}
	return "#" + initials
}
