package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	statsCacheKey = "lead_stats"
	statsCacheTTL = 5 * time.Minute
)

type LeadStatistics struct {
	TotalLeads int `json:"total_leads"`
	TodayLeads int `json:"today_leads"`
	WeekLeads  int `json:"week_leads"`
	MonthLeads int `json:"month_leads"`
	// Sum of price ranges over leads that are not rejected.
	PipelineMin       int64          `json:"pipeline_min"`
	PipelineMax       int64          `json:"pipeline_max"`
	StatusCounts      map[string]int `json:"status_counts"`
	ProjectTypeCounts map[string]int `json:"project_type_counts"`
}

func (s *Storage) GetLeadStatistics(ctx context.Context) (*LeadStatistics, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey); err == nil {
			var stats LeadStatistics
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	now := s.now().UTC().Truncate(time.Second)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := &LeadStatistics{
		StatusCounts:      make(map[string]int),
		ProjectTypeCounts: make(map[string]int),
	}

	var err error
	if stats.TotalLeads, err = s.countSince(ctx, time.Time{}); err != nil {
		return nil, err
	}
	if stats.TodayLeads, err = s.countSince(ctx, today); err != nil {
		return nil, err
	}
	if stats.WeekLeads, err = s.countSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return nil, err
	}
	if stats.MonthLeads, err = s.countSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		return nil, err
	}

	var pipeline struct {
		Min int64 `db:"pipeline_min"`
		Max int64 `db:"pipeline_max"`
	}
	err = s.db.GetContext(ctx, &pipeline, s.db.Rebind(`
		SELECT
			COALESCE(SUM(price_min), 0) AS pipeline_min,
			COALESCE(SUM(price_max), 0) AS pipeline_max
		FROM leads
		WHERE status <> ?
	`), StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline value: %w", err)
	}
	stats.PipelineMin, stats.PipelineMax = pipeline.Min, pipeline.Max

	if err := s.groupCounts(ctx, "status", stats.StatusCounts); err != nil {
		return nil, err
	}
	if err := s.groupCounts(ctx, "project_type", stats.ProjectTypeCounts); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, data, statsCacheTTL); err != nil {
				s.logger.Warn("Failed to cache lead statistics", zap.Error(err))
			}
		}
	}
	return stats, nil
}

func (s *Storage) countSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	var err error
	if since.IsZero() {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM leads`)
	} else {
		err = s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM leads WHERE created_at >= ?`), since)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

// groupCounts fills into with lead counts grouped by column, which must be a
// trusted column name.
func (s *Storage) groupCounts(ctx context.Context, column string, into map[string]int) error {
	var rows []struct {
		Group string `db:"grp"`
		Count int    `db:"cnt"`
	}
	query := fmt.Sprintf(`SELECT %s AS grp, COUNT(*) AS cnt FROM leads GROUP BY %s`, column, column)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return fmt.Errorf("failed to get %s counts: %w", column, err)
	}
	for _, r := range rows {
		into[r.Group] = r.Count
	}
	return nil
}

func (s *Storage) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate lead statistics cache", zap.Error(err))
	}
}
