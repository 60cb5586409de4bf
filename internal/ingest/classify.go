package ingest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/vmud/newshub/internal/news"
	"github.com/vmud/newshub/internal/source"
)

// Request URLs carry query values and dates that look like keywords.
var urlPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s"']+`)

type kindRule struct {
	kind     news.ErrorKind
	keywords []string
}

// Checked in order; the first rule with a matching keyword wins.
var kindRules = []kindRule{
	{news.ErrorTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{news.ErrorRateLimit, []string{"rate limit", "ratelimit", "429", "too many requests"}},
	{news.ErrorAPICredits, []string{"quota", "billing", "credit", "402", "insufficient"}},
	{news.ErrorDatabase, []string{"database", "sqlstate", "postgres", "relation "}},
	{news.ErrorNetwork, []string{"network", "fetch", "connection", "dial", "no such host", "eof"}},
	{news.ErrorSchema, []string{"json", "parse", "schema", "unmarshal", "invalid character"}},
}

// Classify assigns an adapter failure to one error kind.
func Classify(err error) news.ErrorKind {
	if err == nil {
		return news.ErrorUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return news.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return news.ErrorTimeout
	}

	var httpErr *source.HTTPError
	if errors.As(err, &httpErr) {
		if kind, ok := statusKind(httpErr.StatusCode); ok {
			return kind
		}
		return matchKeywords(httpErr.Body)
	}
	return matchKeywords(err.Error())
}

func statusKind(status int) (news.ErrorKind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return news.ErrorRateLimit, true
	case status == http.StatusPaymentRequired:
		return news.ErrorAPICredits, true
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return news.ErrorTimeout, true
	case status >= 500:
		return news.ErrorNetwork, true
	}
	return "", false
}

func matchKeywords(message string) news.ErrorKind {
	text := strings.ToLower(urlPattern.ReplaceAllString(message, ""))
	for _, rule := range kindRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.kind
			}
		}
	}
	return news.ErrorUnknown
}
