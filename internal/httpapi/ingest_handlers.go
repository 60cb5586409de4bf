package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vmud/newshub/internal/globaltime"
	"github.com/vmud/newshub/internal/ingest"
	"github.com/vmud/newshub/internal/news"
)

const (
	cronTriggerHeader = "X-Cron-Trigger"
	defaultRunsLimit  = 20
	maxRunsLimit      = 200
)

// isScheduled reports whether the request came from a scheduler rather than a
// person.
func isScheduled(r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get(cronTriggerHeader)) == "1" {
		return true
	}
	if flag, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("scheduled"))); err == nil && flag {
		return true
	}
	return strings.Contains(strings.ToLower(r.UserAgent()), "cron")
}

func (s *Server) handleIngest(c echo.Context) error {
	since, err := parseTimeParam(c.QueryParam("since"))
	if err != nil {
		return failValidation(c, map[string]string{"since": "must be RFC3339 or YYYY-MM-DD"})
	}

	var providers []string
	for _, name := range strings.Split(c.QueryParam("providers"), ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			providers = append(providers, trimmed)
		}
	}

	opts := ingest.RunOptions{
		Scheduled: isScheduled(c.Request()),
		Since:     since,
		Providers: providers,
	}
	summary, err := s.runner.Run(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Bool("scheduled", opts.Scheduled).Msg("ingestion run failed")
		return errorWithData(c, http.StatusInternalServerError, "Ingestion failed: "+err.Error(), summary)
	}

	switch summary.Outcome() {
	case news.OutcomeFailure:
		return errorWithData(c, http.StatusInternalServerError, "All providers failed", summary)
	case news.OutcomePartialSuccess:
		return successWithStatus(c, http.StatusMultiStatus, summary)
	default:
		return success(c, summary)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	data := map[string]any{
		"service": "newshub",
		"time":    globaltime.UTC(),
	}
	if s.db != nil {
		if err := s.db.Ping(c.Request().Context()); err != nil {
			s.logger.Error().Err(err).Msg("database ping failed")
			data["database"] = "unavailable"
			return errorWithData(c, http.StatusServiceUnavailable, "Database unavailable", data)
		}
		data["database"] = "ok"
	}
	return success(c, data)
}

func (s *Server) handleRuns(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultRunsLimit, 1, maxRunsLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	if s.runs == nil {
		return internalError(c, "Run history is not available")
	}

	records, err := s.runs.RecentIngestionRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Msg("query ingestion runs failed")
		return internalError(c, "Failed to load ingestion runs")
	}
	return success(c, map[string]any{
		"items": records,
		"limit": limit,
	})
}
