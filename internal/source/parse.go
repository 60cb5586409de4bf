package source

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vmud/newshub/internal/news"
	"github.com/vmud/newshub/internal/normalize"
	payloadschema "github.com/vmud/newshub/schema"
)

const maxFallbackURLs = 5

var bareURLPattern = regexp.MustCompile(`https?://[^\s)\]"'<>]+`)

// ParseResult is the outcome of reading a free-text model response.
type ParseResult struct {
	Items []news.CandidateItem
	// Fallback is true when no JSON could be read and items were synthesized
	// from bare URLs.
	Fallback bool
	Rejected []payloadschema.ElementError
}

// ParseArticles reads a model response in two stages. First the first
// balanced JSON array (or, failing that, object) is validated element by
// element against the candidate schema. Only when no JSON block can be read
// at all are bare URLs scraped from the text; those items carry
// LowConfidence. companies is the batch the prompt asked about.
func ParseArticles(text string, companies []string, now time.Time) ParseResult {
	for _, block := range []string{firstJSONBlock(text, '['), firstJSONBlock(text, '{')} {
		if block == "" {
			continue
		}
		records, rejected, err := payloadschema.ValidateCandidateList(json.RawMessage(block))
		if err != nil {
			continue
		}
		items := make([]news.CandidateItem, 0, len(records))
		for _, record := range records {
			items = append(items, candidateFromRecord(record))
		}
		return ParseResult{Items: items, Rejected: rejected}
	}

	return ParseResult{Items: fallbackCandidates(text, companies, now), Fallback: true}
}

func candidateFromRecord(record payloadschema.CandidateRecord) news.CandidateItem {
	raw := record.Raw
	if len(raw) == 0 {
		raw, _ = json.Marshal(record)
	}
	domain := strings.TrimSpace(record.SourceDomain)
	if domain == "" {
		domain = normalize.ExtractDomain(record.URL)
	}
	return news.CandidateItem{
		Title:          strings.TrimSpace(record.Title),
		URL:            strings.TrimSpace(record.URL),
		SourceDomain:   domain,
		PublishedAt:    strings.TrimSpace(record.PublishedAt),
		CompanyMention: strings.TrimSpace(record.CompanyMentioned),
		RawPayload:     raw,
	}
}

func fallbackCandidates(text string, companies []string, now time.Time) []news.CandidateItem {
	company := firstCompanyIn(text, companies)
	if company == "" && len(companies) > 0 {
		company = companies[0]
	}

	var items []news.CandidateItem
	seen := map[string]struct{}{}
	for _, match := range bareURLPattern.FindAllString(text, -1) {
		link := strings.TrimRight(match, ".,;:!?")
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		domain := normalize.ExtractDomain(link)
		raw, _ := json.Marshal(map[string]string{"extraction": "url_fallback", "url": link})
		items = append(items, news.CandidateItem{
			Title:          fmt.Sprintf("Recent %s news from %s", company, domain),
			URL:            link,
			SourceDomain:   domain,
			PublishedAt:    now.UTC().Format(time.RFC3339),
			CompanyMention: company,
			RawPayload:     raw,
			LowConfidence:  true,
		})
		if len(items) == maxFallbackURLs {
			break
		}
	}
	return items
}

// firstCompanyIn returns the first company, in batch order, named in text.
func firstCompanyIn(text string, companies []string) string {
	lower := strings.ToLower(text)
	for _, company := range companies {
		name := strings.ToLower(strings.TrimSpace(company))
		if name != "" && strings.Contains(lower, name) {
			return company
		}
	}
	return ""
}

// companyFromTitle returns the first company all of whose words appear in
// the title.
func companyFromTitle(title string, companies []string) string {
	lower := strings.ToLower(title)
	for _, company := range companies {
		words := strings.Fields(strings.ToLower(company))
		if len(words) == 0 {
			continue
		}
		matched := true
		for _, word := range words {
			if !strings.Contains(lower, word) {
				matched = false
				break
			}
		}
		if matched {
			return company
		}
	}
	return ""
}

// firstJSONBlock returns the first balanced block opened by open ('[' or '{')
// that is valid JSON. Brackets inside JSON strings are ignored.
func firstJSONBlock(text string, open byte) string {
	for start := strings.IndexByte(text, open); start >= 0; {
		if end := balancedEnd(text, start); end > start {
			block := text[start : end+1]
			if json.Valid([]byte(block)) && (open == '{' || looksLikeArticleList(block)) {
				return block
			}
		}
		next := strings.IndexByte(text[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

func balancedEnd(text string, start int) int {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// looksLikeArticleList skips citation markers like "[1]" that are valid JSON
// but not a list of objects.
func looksLikeArticleList(block string) bool {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(block), &elements); err != nil {
		return false
	}
	if len(elements) == 0 {
		return true
	}
	first := strings.TrimSpace(string(elements[0]))
	return strings.HasPrefix(first, "{")
}
