package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/export/xlsx"
)

const (
	maxRatingBodyBytes = 64 << 10
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ratingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

func (rt *Router) submitRating(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.operator(w, r)
	if !ok {
		return
	}

	var body ratingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRatingBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	rating, err := rt.services.Ratings.SubmitRating(r.Context(), req, r.PathValue("id"), body.Score, body.Comment)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

func (rt *Router) analytics(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAnalyticsFilter(r.URL.Query())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	view, err := rt.services.Analytics.View(r.Context(), rt.requestContext(r), filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) exportAnalytics(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAnalyticsFilter(r.URL.Query())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	req := rt.requestContext(r)
	rows, err := rt.services.Analytics.Export(r.Context(), req, filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, rows, req.Locale); err != nil {
		rt.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="analytics.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// parseAnalyticsFilter reads the dashboard filter from query parameters.
// Dates are YYYY-MM-DD in UTC. category and model may repeat; category also
// accepts a comma separated list and any localized label.
func parseAnalyticsFilter(q url.Values) (domain.AnalyticsFilter, error) {
	var filter domain.AnalyticsFilter
	var err error

	if filter.From, err = parseDay(q, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDay(q, "to"); err != nil {
		return filter, err
	}
	filter.FilenameQuery = strings.TrimSpace(q.Get("q"))

	for _, raw := range q["category"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			category, ok := domain.ParseCategory(part)
			if !ok {
				return filter, invalidQuery("category", part)
			}
			filter.Categories = append(filter.Categories, category)
		}
	}
	for _, model := range q["model"] {
		if model = strings.TrimSpace(model); model != "" {
			filter.Models = append(filter.Models, model)
		}
	}

	if filter.RatingMin, err = parseInt(q, "rating_min"); err != nil {
		return filter, err
	}
	if filter.RatingMax, err = parseInt(q, "rating_max"); err != nil {
		return filter, err
	}
	if filter.Page, err = parseInt(q, "page"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(q.Get("only_rated")); raw != "" {
		if filter.OnlyRated, err = strconv.ParseBool(raw); err != nil {
			return filter, invalidQuery("only_rated", raw)
		}
	}
	return filter, nil
}

func parseDay(q url.Values, key string) (time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return time.Time{}, invalidQuery(key, raw)
	}
	return day, nil
}

func parseInt(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQuery(key, raw)
	}
	return value, nil
}

func invalidQuery(key, value string) error {
	return domain.WrapError(domain.ErrInvalidInput, "parse analytics filter", fmt.Errorf("%s=%q", key, value))
}
