package source

import (
	"strings"
	"testing"
	"time"
)

var parseNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestParseArticlesStrictArray(t *testing.T) {
	t.Parallel()

	text := "Here is what I found [1]:\n```json\n" + `[
  {"title":"Qualcomm beats estimates","url":"https://www.reuters.com/q","published_at":"2024-01-14T09:00:00Z","company_mentioned":"Qualcomm"},
  {"title":"Broken element"},
  {"title":"Pixel [leak] \"8a\"","url":"https://theverge.com/pixel","source_domain":"theverge.com","published_at":"2024-01-13"}
]` + "\n```\nHope that helps."

	result := ParseArticles(text, []string{"Qualcomm", "Google"}, parseNow)
	if result.Fallback {
		t.Fatalf("expected strict parse")
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Index != 1 {
		t.Fatalf("unexpected rejected: %v", result.Rejected)
	}

	first := result.Items[0]
	if first.SourceDomain != "reuters.com" {
		t.Fatalf("expected domain derived from url, got %q", first.SourceDomain)
	}
	if first.LowConfidence {
		t.Fatalf("strict items must not be low confidence")
	}
	if result.Items[1].Title != `Pixel [leak] "8a"` {
		t.Fatalf("title = %q", result.Items[1].Title)
	}
}

func TestParseArticlesObjectBlock(t *testing.T) {
	t.Parallel()

	text := `Result: {"articles":[{"title":"Galaxy S24 launch","url":"https://cnbc.com/galaxy","company_mentioned":"Samsung"}]}`
	result := ParseArticles(text, []string{"Samsung"}, parseNow)
	if result.Fallback || len(result.Items) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Items[0].CompanyMention != "Samsung" {
		t.Fatalf("company = %q", result.Items[0].CompanyMention)
	}
}

func TestParseArticlesKeepsExtraFieldsInRawPayload(t *testing.T) {
	t.Parallel()

	text := `[{"title":"Maytag recall expands","url":"https://apnews.com/maytag","published_at":"2024-01-14","summary":"Washers recalled","confidence":"high"}]`
	result := ParseArticles(text, []string{"Maytag"}, parseNow)
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	raw := string(result.Items[0].RawPayload)
	if !strings.Contains(raw, `"summary":"Washers recalled"`) || !strings.Contains(raw, `"confidence":"high"`) {
		t.Fatalf("extra fields lost from raw payload: %s", raw)
	}
}

func TestParseArticlesEmptyArrayIsNotFallback(t *testing.T) {
	t.Parallel()

	result := ParseArticles("No news this week: []", []string{"Maytag"}, parseNow)
	if result.Fallback || len(result.Items) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseArticlesFallbackMarksLowConfidence(t *testing.T) {
	t.Parallel()

	text := `I could not format JSON, but see https://www.androidcentral.com/pixel-9 and (https://engadget.com/pixel-review).
Also https://www.androidcentral.com/pixel-9, https://a.test/1 https://b.test/2 https://c.test/3 https://d.test/4 about Google Pixel.`
	result := ParseArticles(text, []string{"Samsung", "Google"}, parseNow)
	if !result.Fallback {
		t.Fatalf("expected fallback parse")
	}
	if len(result.Items) != maxFallbackURLs {
		t.Fatalf("expected %d items, got %d", maxFallbackURLs, len(result.Items))
	}

	first := result.Items[0]
	if first.URL != "https://www.androidcentral.com/pixel-9" {
		t.Fatalf("url = %q", first.URL)
	}
	if result.Items[1].URL != "https://engadget.com/pixel-review" {
		t.Fatalf("second url = %q", result.Items[1].URL)
	}
	if first.Title != "Recent Google news from androidcentral.com" {
		t.Fatalf("title = %q", first.Title)
	}
	for _, item := range result.Items {
		if !item.LowConfidence {
			t.Fatalf("fallback item without low confidence: %+v", item)
		}
		if item.PublishedAt != "2024-01-15T12:00:00Z" {
			t.Fatalf("published_at = %q", item.PublishedAt)
		}
	}
}

func TestParseArticlesFallbackDefaultsToFirstCompany(t *testing.T) {
	t.Parallel()

	result := ParseArticles("see https://news.test/story", []string{"Whirlpool", "Maytag"}, parseNow)
	if len(result.Items) != 1 || result.Items[0].CompanyMention != "Whirlpool" {
		t.Fatalf("unexpected items: %+v", result.Items)
	}
}

func TestParseArticlesNoJSONNoURLs(t *testing.T) {
	t.Parallel()

	result := ParseArticles("I'm sorry, I cannot browse.", []string{"Qualcomm"}, parseNow)
	if !result.Fallback || len(result.Items) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestFirstJSONBlockSkipsCitations(t *testing.T) {
	t.Parallel()

	text := `Sources [1][2]. Data: [{"a":"]"}] trailing ]`
	if got := firstJSONBlock(text, '['); got != `[{"a":"]"}]` {
		t.Fatalf("firstJSONBlock() = %q", got)
	}
	if got := firstJSONBlock("no json here", '{'); got != "" {
		t.Fatalf("expected empty block, got %q", got)
	}
	if got := firstJSONBlock(`{"unterminated": [1, 2}`, '{'); got != "" {
		t.Fatalf("expected empty block for mismatched brackets, got %q", got)
	}
}

func TestCompanyFromTitle(t *testing.T) {
	t.Parallel()

	companies := []string{"Best Buy", "Geek Squad"}
	if got := companyFromTitle("Geek Squad expands; Best Buy earnings", companies); got != "Best Buy" {
		t.Fatalf("companyFromTitle() = %q", got)
	}
	if got := companyFromTitle("Buy the best TV", []string{"Geek Squad"}); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
	if !strings.EqualFold(companyFromTitle("BEST deals at buy.com", companies), "Best Buy") {
		t.Fatalf("expected all-words match to be case-insensitive")
	}
}
