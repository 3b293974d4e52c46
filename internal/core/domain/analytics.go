package domain

import "time"

const AnalyticsPageSize = 50

// AnalyticsRow is a stored classification joined with its operator login
// and the rating left for it, if any.
type AnalyticsRow struct {
	ClassificationRecord
	Login         string `json:"login"`
	CategoryLabel string `json:"category_label"`
	Rating        *int   `json:"rating,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

// AnalyticsFilter selects rows. Zero From/To leave the date range open; To
// names a day and includes all of it. Empty Categories/Models mean all.
type AnalyticsFilter struct {
	From          time.Time
	To            time.Time
	FilenameQuery string
	Categories    []Category
	Models        []string
	RatingMin     int
	RatingMax     int
	OnlyRated     bool
	Page          int
}

type AnalyticsSummary struct {
	Total          int      `json:"total"`
	DistinctUsers  int      `json:"distinct_users"`
	DistinctModels int      `json:"distinct_models"`
	MeanRating     *float64 `json:"mean_rating,omitempty"`
	RatedCount     int      `json:"rated_count"`
}

type CountBucket struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count"`
}

type DailyPoint struct {
	Day            string   `json:"day"`
	Count          int      `json:"count"`
	MeanConfidence *float64 `json:"mean_confidence,omitempty"`
	MeanRating     *float64 `json:"mean_rating,omitempty"`
}

type FilterOptions struct {
	MinDate    *time.Time `json:"min_date,omitempty"`
	MaxDate    *time.Time `json:"max_date,omitempty"`
	Categories []Category `json:"categories"`
	Models     []string   `json:"models"`
}

type AnalyticsView struct {
	Rows     []AnalyticsRow   `json:"rows"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	PageSize int              `json:"page_size"`
	Summary  AnalyticsSummary `json:"summary"`

	ByModel         []CountBucket `json:"by_model"`
	ByCategory      []CountBucket `json:"by_category"`
	RatingHistogram []CountBucket `json:"rating_histogram"`
	Daily           []DailyPoint  `json:"daily"`

	Options FilterOptions `json:"options"`
}
