package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

type AnalyticsUseCase struct {
	records ports.ClassificationStore
}

func NewAnalyticsUseCase(records ports.ClassificationStore) *AnalyticsUseCase {
	return &AnalyticsUseCase{records: records}
}

// View filters, sorts and paginates the stored classifications and computes
// the aggregates of the whole filtered set.
func (uc *AnalyticsUseCase) View(ctx context.Context, req domain.RequestContext, filter domain.AnalyticsFilter) (*domain.AnalyticsView, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	rows, err := uc.records.ListAllClassifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}

	filtered := FilterRows(rows, filter)
	SortRows(filtered)
	localize(filtered, req.Locale)

	page, pages := clampPage(filter.Page, len(filtered))
	view := &domain.AnalyticsView{
		Rows:            pageRows(filtered, page),
		Page:            page,
		Pages:           pages,
		PageSize:        domain.AnalyticsPageSize,
		Summary:         summarize(filtered),
		ByModel:         countByModel(filtered),
		ByCategory:      countByCategory(filtered, req.Locale),
		RatingHistogram: ratingHistogram(filtered),
		Daily:           dailySeries(filtered),
		Options:         filterOptions(rows),
	}
	return view, nil
}

// Export returns the whole filtered set in display order.
func (uc *AnalyticsUseCase) Export(ctx context.Context, req domain.RequestContext, filter domain.AnalyticsFilter) ([]domain.AnalyticsRow, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	rows, err := uc.records.ListAllClassifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}
	filtered := FilterRows(rows, filter)
	SortRows(filtered)
	localize(filtered, req.Locale)
	return filtered, nil
}

// NormalizeFilter fills the default rating range, clamps it into the score
// scale and rejects an inverted range.
func NormalizeFilter(filter domain.AnalyticsFilter) (domain.AnalyticsFilter, error) {
	if filter.RatingMin == 0 {
		filter.RatingMin = domain.MinRatingScore
	}
	if filter.RatingMax == 0 {
		filter.RatingMax = domain.MaxRatingScore
	}
	filter.RatingMin = clampInt(filter.RatingMin, domain.MinRatingScore, domain.MaxRatingScore)
	filter.RatingMax = clampInt(filter.RatingMax, domain.MinRatingScore, domain.MaxRatingScore)
	if filter.RatingMin > filter.RatingMax {
		return filter, domain.WrapError(
			domain.ErrInvalidInput,
			"analytics filter",
			fmt.Errorf("rating range %d..%d is inverted", filter.RatingMin, filter.RatingMax),
		)
	}
	filter.FilenameQuery = strings.TrimSpace(filter.FilenameQuery)
	return filter, nil
}

// FilterRows returns the rows matching filter, keeping their order. The
// filter is expected to be normalized.
func FilterRows(rows []domain.AnalyticsRow, filter domain.AnalyticsFilter) []domain.AnalyticsRow {
	query := strings.ToLower(filter.FilenameQuery)
	var end time.Time
	if !filter.To.IsZero() {
		end = startOfDay(filter.To).AddDate(0, 0, 1)
	}
	categories := make(map[domain.Category]struct{}, len(filter.Categories))
	for _, c := range filter.Categories {
		categories[c] = struct{}{}
	}
	models := make(map[string]struct{}, len(filter.Models))
	for _, m := range filter.Models {
		models[m] = struct{}{}
	}

	out := make([]domain.AnalyticsRow, 0, len(rows))
	for _, row := range rows {
		if !filter.From.IsZero() && row.CreatedAt.Before(startOfDay(filter.From)) {
			continue
		}
		if !end.IsZero() && !row.CreatedAt.Before(end) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(row.Filename), query) {
			continue
		}
		if len(categories) > 0 {
			if _, ok := categories[row.PredictedClass]; !ok {
				continue
			}
		}
		if len(models) > 0 {
			if _, ok := models[row.ModelName]; !ok {
				continue
			}
		}
		if row.Rating == nil {
			if filter.OnlyRated {
				continue
			}
		} else if *row.Rating < filter.RatingMin || *row.Rating > filter.RatingMax {
			continue
		}
		out = append(out, row)
	}
	return out
}

// SortRows orders rows newest first, then by category and id.
func SortRows(rows []domain.AnalyticsRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.PredictedClass != b.PredictedClass {
			return a.PredictedClass < b.PredictedClass
		}
		return a.ID < b.ID
	})
}

func localize(rows []domain.AnalyticsRow, locale domain.Locale) {
	for i := range rows {
		rows[i].CategoryLabel = rows[i].PredictedClass.Label(locale)
	}
}

// clampPage returns the page to show and the page count. An empty set is
// page 1 of 0.
func clampPage(page, total int) (int, int) {
	pages := (total + domain.AnalyticsPageSize - 1) / domain.AnalyticsPageSize
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	return page, pages
}

func pageRows(rows []domain.AnalyticsRow, page int) []domain.AnalyticsRow {
	start := (page - 1) * domain.AnalyticsPageSize
	if start >= len(rows) {
		return []domain.AnalyticsRow{}
	}
	end := min(start+domain.AnalyticsPageSize, len(rows))
	return rows[start:end]
}

func summarize(rows []domain.AnalyticsRow) domain.AnalyticsSummary {
	users := make(map[string]struct{})
	models := make(map[string]struct{})
	var ratingSum, rated int
	for _, row := range rows {
		users[row.UserID] = struct{}{}
		models[row.ModelName] = struct{}{}
		if row.Rating != nil {
			ratingSum += *row.Rating
			rated++
		}
	}
	summary := domain.AnalyticsSummary{
		Total:          len(rows),
		DistinctUsers:  len(users),
		DistinctModels: len(models),
		RatedCount:     rated,
	}
	if rated > 0 {
		mean := float64(ratingSum) / float64(rated)
		summary.MeanRating = &mean
	}
	return summary
}

func countByModel(rows []domain.AnalyticsRow) []domain.CountBucket {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.ModelName]++
	}
	out := make([]domain.CountBucket, 0, len(counts))
	for model, n := range counts {
		out = append(out, domain.CountBucket{Key: model, Label: model, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// countByCategory reports every category in folder order, including empty
// ones.
func countByCategory(rows []domain.AnalyticsRow, locale domain.Locale) []domain.CountBucket {
	counts := make(map[domain.Category]int)
	for _, row := range rows {
		counts[row.PredictedClass]++
	}
	out := make([]domain.CountBucket, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, domain.CountBucket{Key: string(c), Label: c.Label(locale), Count: counts[c]})
	}
	return out
}

func ratingHistogram(rows []domain.AnalyticsRow) []domain.CountBucket {
	counts := make(map[int]int)
	for _, row := range rows {
		if row.Rating != nil {
			counts[*row.Rating]++
		}
	}
	out := make([]domain.CountBucket, 0, domain.MaxRatingScore)
	for score := domain.MinRatingScore; score <= domain.MaxRatingScore; score++ {
		key := strconv.Itoa(score)
		out = append(out, domain.CountBucket{Key: key, Label: key, Count: counts[score]})
	}
	return out
}

type dayAccumulator struct {
	count         int
	confidenceSum float64
	confidenceN   int
	ratingSum     int
	ratingN       int
}

// dailySeries groups rows by UTC calendar day in ascending order.
func dailySeries(rows []domain.AnalyticsRow) []domain.DailyPoint {
	days := make(map[string]*dayAccumulator)
	for _, row := range rows {
		key := row.CreatedAt.UTC().Format(time.DateOnly)
		acc, ok := days[key]
		if !ok {
			acc = &dayAccumulator{}
			days[key] = acc
		}
		acc.count++
		if row.Confidence != nil {
			acc.confidenceSum += *row.Confidence
			acc.confidenceN++
		}
		if row.Rating != nil {
			acc.ratingSum += *row.Rating
			acc.ratingN++
		}
	}

	out := make([]domain.DailyPoint, 0, len(days))
	for day, acc := range days {
		point := domain.DailyPoint{Day: day, Count: acc.count}
		if acc.confidenceN > 0 {
			v := acc.confidenceSum / float64(acc.confidenceN)
			point.MeanConfidence = &v
		}
		if acc.ratingN > 0 {
			v := float64(acc.ratingSum) / float64(acc.ratingN)
			point.MeanRating = &v
		}
		out = append(out, point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// filterOptions describes the unfiltered data so the filter form can offer
// valid choices.
func filterOptions(rows []domain.AnalyticsRow) domain.FilterOptions {
	options := domain.FilterOptions{Categories: []domain.Category{}, Models: []string{}}
	seenCategory := make(map[domain.Category]struct{})
	seenModel := make(map[string]struct{})
	for _, row := range rows {
		created := row.CreatedAt
		if options.MinDate == nil || created.Before(*options.MinDate) {
			options.MinDate = &created
		}
		if options.MaxDate == nil || created.After(*options.MaxDate) {
			options.MaxDate = &created
		}
		seenCategory[row.PredictedClass] = struct{}{}
		seenModel[row.ModelName] = struct{}{}
	}
	for _, c := range domain.Categories {
		if _, ok := seenCategory[c]; ok {
			options.Categories = append(options.Categories, c)
		}
	}
	for m := range seenModel {
		options.Models = append(options.Models, m)
	}
	sort.Strings(options.Models)
	return options
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
