package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/rchejfec/passive-policy-intelligence/internal/config"
	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

func testDigestConfig() config.Digest {
	return config.Digest{
		PriorityName:  "Priority Highlights",
		PriorityLimit: 2,
		Sections: []config.Section{
			{Name: "Research", SourceCategories: []string{"Think Tank"}, Limit: 2},
			{Name: "Government", SourceCategories: []string{"Government"}, Limit: 2},
		},
	}
}

func row(articleID int64, title, category, anchor string, score float64, highlight bool) database.CandidateRow {
	return database.CandidateRow{
		ArticleID:      articleID,
		Title:          title,
		Link:           "https://example.com/" + title,
		SourceName:     "src",
		SourceCategory: category,
		AnchorName:     anchor,
		Score:          score,
		IsOrgHighlight: highlight,
	}
}

func TestAggregateCollapsesAnchors(t *testing.T) {
	rows := []database.CandidateRow{
		row(1, "a", "Think Tank", "Anchor One", 0.4, false),
		row(1, "a", "Think Tank", "Anchor Two", 0.7, false),
		row(1, "a", "Think Tank", "Anchor One", 0.2, false),
		row(2, "b", "Government", "Anchor One", 0.5, false),
	}
	items := Aggregate(rows)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Score != 0.7 {
		t.Errorf("expected best score 0.7, got %v", items[0].Score)
	}
	if len(items[0].Anchors) != 2 {
		t.Errorf("expected 2 distinct anchors, got %v", items[0].Anchors)
	}
}

func TestFilterByScopeEmptyAdmitsAll(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "a", "Think Tank", "Anything", 0.4, false),
	})
	kept := FilterByScope(items, nil)
	if len(kept) != 1 {
		t.Errorf("expected empty scope to admit everything, got %d", len(kept))
	}
}

func TestFilterByScopeExactName(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "a", "Think Tank", "AI Regulation", 0.4, false),
		row(2, "b", "Think Tank", "Trade Policy", 0.4, false),
	})
	kept := FilterByScope(items, []string{"AI Regulation"})
	if len(kept) != 1 || kept[0].ArticleID != 1 {
		t.Errorf("expected only the named anchor's article, got %+v", kept)
	}
}

func TestFilterByScopeTypePrefix(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "a", "Think Tank", "PROG: Arctic Security", 0.4, false),
		row(2, "b", "Think Tank", "General Interest", 0.4, false),
	})
	kept := FilterByScope(items, []string{"TYPE:PROG"})
	if len(kept) != 1 || kept[0].ArticleID != 1 {
		t.Errorf("expected only the PROG-anchored article, got %+v", kept)
	}
}

func TestFilterByScopeHighlightBypass(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "a", "Think Tank", "Out of Scope", 0.4, true),
	})
	kept := FilterByScope(items, []string{"Something Else"})
	if len(kept) != 1 {
		t.Error("expected org highlight to bypass the scope filter")
	}
}

func TestSelectContentDedup(t *testing.T) {
	// A highlighted Think Tank article must land in the priority section
	// only, leaving the research section to the next best.
	items := Aggregate([]database.CandidateRow{
		row(1, "vip", "Think Tank", "A", 0.9, true),
		row(2, "second", "Think Tank", "A", 0.6, false),
	})
	sections := SelectContent(items, testDigestConfig())

	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if len(sections[0].Items) != 1 || sections[0].Items[0].ArticleID != 1 {
		t.Errorf("expected article 1 in priority section, got %+v", sections[0].Items)
	}
	if len(sections[1].Items) != 1 || sections[1].Items[0].ArticleID != 2 {
		t.Errorf("expected article 2 in research section, got %+v", sections[1].Items)
	}

	seen := make(map[int64]int)
	for _, s := range sections {
		for _, item := range s.Items {
			seen[item.ArticleID]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("article %d appears in %d sections", id, n)
		}
	}
}

func TestSelectContentCapacityAndOrder(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "low", "Government", "A", 0.3, false),
		row(2, "high", "Government", "A", 0.9, false),
		row(3, "mid", "Government", "A", 0.6, false),
	})
	sections := SelectContent(items, testDigestConfig())

	gov := sections[2]
	if len(gov.Items) != 2 {
		t.Fatalf("expected capacity 2, got %d items", len(gov.Items))
	}
	if gov.Items[0].ArticleID != 2 || gov.Items[1].ArticleID != 3 {
		t.Errorf("expected score-descending picks, got %+v", gov.Items)
	}
}

func TestSelectContentHighlightSortsFirst(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "strong", "Government", "A", 0.9, false),
		row(2, "flagged", "Government", "A", 0.2, true),
	})
	cfg := testDigestConfig()
	cfg.Sections[1].Limit = 1
	// Priority section takes the highlight; the remaining slot goes to the
	// unflagged article.
	sections := SelectContent(items, cfg)
	if sections[0].Items[0].ArticleID != 2 {
		t.Errorf("expected highlight in priority section, got %+v", sections[0].Items)
	}
	if sections[2].Items[0].ArticleID != 1 {
		t.Errorf("expected remaining article in government section, got %+v", sections[2].Items)
	}
}

func TestRenderMarkdown(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "vip", "Think Tank", "PROG: Arctic Security", 0.9, true),
	})
	sections := SelectContent(items, testDigestConfig())
	body := RenderMarkdown(sections, 5, time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC))

	if !strings.Contains(body, "# Daily Policy Digest") {
		t.Error("expected digest heading")
	}
	if !strings.Contains(body, "Priority Highlights") {
		t.Error("expected priority section heading")
	}
	if !strings.Contains(body, "5 articles considered") {
		t.Error("expected candidate count")
	}
	if !strings.Contains(body, "#PROG:AS") {
		t.Errorf("expected shortened anchor tag, got body:\n%s", body)
	}
}

func TestFormatTag(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"PROG: Arctic Security", "#PROG:AS"},
		{"Trade", "#Trade"},
		{"Artificial Intelligence Governance", "#AIG"},
		{"http://example.com", "#REF"},
	}
	for _, c := range cases {
		if got := formatTag(c.in); got != c.want {
			t.Errorf("formatTag(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRenderCardEnvelope(t *testing.T) {
	items := Aggregate([]database.CandidateRow{
		row(1, "a", "Think Tank", "A", 0.9, true),
	})
	sections := SelectContent(items, testDigestConfig())
	card := RenderCard(sections, 1, time.Now())

	if card["type"] != "message" {
		t.Errorf("expected message envelope, got %v", card["type"])
	}
	attachments, ok := card["attachments"].([]map[string]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %v", card["attachments"])
	}
	if attachments[0]["contentType"] != "application/vnd.microsoft.card.adaptive" {
		t.Errorf("unexpected content type %v", attachments[0]["contentType"])
	}
}
