package digest

import (
	"log"
	"sort"
	"strings"

	"github.com/rchejfec/passive-policy-intelligence/internal/config"
	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// Item is one digest candidate aggregated over its anchors.
type Item struct {
	ArticleID      int64
	Title          string
	Link           string
	SourceName     string
	SourceCategory string
	Score          float64
	IsHighlight    bool
	Anchors        []string
}

// Section is a rendered group of selected items.
type Section struct {
	Name  string
	Items []Item
}

const typePrefix = "TYPE:"

// Aggregate collapses (article, anchor) rows into one item per article,
// keeping the best score and collecting the anchor names.
func Aggregate(rows []database.CandidateRow) []Item {
	itemsByID := make(map[int64]*Item)
	var order []int64
	for _, row := range rows {
		item, ok := itemsByID[row.ArticleID]
		if !ok {
			item = &Item{
				ArticleID:      row.ArticleID,
				Title:          row.Title,
				Link:           row.Link,
				SourceName:     row.SourceName,
				SourceCategory: row.SourceCategory,
				Score:          row.Score,
				IsHighlight:    row.IsOrgHighlight,
			}
			itemsByID[row.ArticleID] = item
			order = append(order, row.ArticleID)
		}
		if row.Score > item.Score {
			item.Score = row.Score
		}
		if !contains(item.Anchors, row.AnchorName) {
			item.Anchors = append(item.Anchors, row.AnchorName)
		}
	}

	items := make([]Item, 0, len(order))
	for _, id := range order {
		items = append(items, *itemsByID[id])
	}
	return items
}

// FilterByScope keeps items matching the configured scope. Scope entries
// are exact anchor names, or "TYPE:<prefix>" to match any anchor whose name
// starts with "<prefix>:". Org highlights always pass, and an empty scope
// admits everything.
func FilterByScope(items []Item, scope []string) []Item {
	if len(scope) == 0 {
		return items
	}

	var names []string
	var prefixes []string
	for _, entry := range scope {
		if strings.HasPrefix(strings.ToUpper(entry), typePrefix) {
			prefixes = append(prefixes, strings.ToUpper(entry[len(typePrefix):]))
		} else {
			names = append(names, entry)
		}
	}

	var kept []Item
	for _, item := range items {
		if item.IsHighlight {
			kept = append(kept, item)
			continue
		}
		if matchesScope(item.Anchors, names, prefixes) {
			kept = append(kept, item)
		}
	}
	log.Printf("Scope filter: kept %d of %d articles", len(kept), len(items))
	return kept
}

func matchesScope(anchors, names, prefixes []string) bool {
	for _, anchor := range anchors {
		if contains(names, anchor) {
			return true
		}
		upper := strings.ToUpper(anchor)
		for _, p := range prefixes {
			if strings.HasPrefix(upper, p+":") {
				return true
			}
		}
	}
	return false
}

// SelectContent packs items into sections: the priority section takes org
// highlights first, then each configured section fills from its source
// categories. An article claimed by one section never reappears in another.
func SelectContent(items []Item, cfg config.Digest) []Section {
	selected := make(map[int64]struct{})

	pickTop := func(candidates []Item, limit int) []Item {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].IsHighlight != candidates[j].IsHighlight {
				return candidates[i].IsHighlight
			}
			return candidates[i].Score > candidates[j].Score
		})
		var picks []Item
		for _, item := range candidates {
			if len(picks) >= limit {
				break
			}
			if _, taken := selected[item.ArticleID]; taken {
				continue
			}
			picks = append(picks, item)
			selected[item.ArticleID] = struct{}{}
		}
		return picks
	}

	var highlights []Item
	for _, item := range items {
		if item.IsHighlight {
			highlights = append(highlights, item)
		}
	}

	sections := []Section{{
		Name:  cfg.PriorityName,
		Items: pickTop(highlights, cfg.PriorityLimit),
	}}

	for _, sc := range cfg.Sections {
		var candidates []Item
		for _, item := range items {
			if contains(sc.SourceCategories, item.SourceCategory) {
				candidates = append(candidates, item)
			}
		}
		sections = append(sections, Section{
			Name:  sc.Name,
			Items: pickTop(candidates, sc.Limit),
		})
	}

	return sections
}

// ItemCount sums the selected items across sections.
func ItemCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Items)
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
