package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrMetricsNotFound = errors.New("metrics not found")

// DailyMetrics is one day of reported activity for a handle.
type DailyMetrics struct {
	Handle         string
	ReportDate     string
	Leads          int
	TrafficSeconds int
	QualityCalls   int
}

// MonthlyMetrics is the month-to-date rollup for a handle.
type MonthlyMetrics struct {
	Handle         string
	Month          string
	Leads          int
	TrafficSeconds int
	QualityCalls   int
}

// DailyMetricsByHandle returns the newest daily row for a handle.
func (s *Store) DailyMetricsByHandle(ctx context.Context, handle string) (DailyMetrics, error) {
	metrics := DailyMetrics{}
	err := s.db.QueryRowContext(
		ctx,
		`SELECT handle, report_date, leads, traffic_seconds, quality_calls
		FROM daily_metrics WHERE handle = ? ORDER BY report_date DESC LIMIT 1`,
		NormalizeHandle(handle),
	).Scan(&metrics.Handle, &metrics.ReportDate, &metrics.Leads, &metrics.TrafficSeconds, &metrics.QualityCalls)
	if errors.Is(err, sql.ErrNoRows) {
		return DailyMetrics{}, ErrMetricsNotFound
	}
	if err != nil {
		return DailyMetrics{}, fmt.Errorf("lookup daily metrics: %w", err)
	}
	return metrics, nil
}

// MonthlyMetricsByHandle returns the newest monthly row for a handle.
func (s *Store) MonthlyMetricsByHandle(ctx context.Context, handle string) (MonthlyMetrics, error) {
	metrics := MonthlyMetrics{}
	err := s.db.QueryRowContext(
		ctx,
		`SELECT handle, month, leads, traffic_seconds, quality_calls
		FROM monthly_metrics WHERE handle = ? ORDER BY month DESC LIMIT 1`,
		NormalizeHandle(handle),
	).Scan(&metrics.Handle, &metrics.Month, &metrics.Leads, &metrics.TrafficSeconds, &metrics.QualityCalls)
	if errors.Is(err, sql.ErrNoRows) {
		return MonthlyMetrics{}, ErrMetricsNotFound
	}
	if err != nil {
		return MonthlyMetrics{}, fmt.Errorf("lookup monthly metrics: %w", err)
	}
	return metrics, nil
}

// UpsertDailyMetrics inserts or replaces the daily row for (handle, date).
func (s *Store) UpsertDailyMetrics(ctx context.Context, metrics DailyMetrics) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO daily_metrics (handle, report_date, leads, traffic_seconds, quality_calls)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (handle, report_date) DO UPDATE SET
			leads = excluded.leads,
			traffic_seconds = excluded.traffic_seconds,
			quality_calls = excluded.quality_calls`,
		NormalizeHandle(metrics.Handle),
		metrics.ReportDate,
		metrics.Leads,
		metrics.TrafficSeconds,
		metrics.QualityCalls,
	)
	if err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}
	return nil
}

// UpsertMonthlyMetrics inserts or replaces the monthly row for (handle, month).
func (s *Store) UpsertMonthlyMetrics(ctx context.Context, metrics MonthlyMetrics) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO monthly_metrics (handle, month, leads, traffic_seconds, quality_calls)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (handle, month) DO UPDATE SET
			leads = excluded.leads,
			traffic_seconds = excluded.traffic_seconds,
			quality_calls = excluded.quality_calls`,
		NormalizeHandle(metrics.Handle),
		metrics.Month,
		metrics.Leads,
		metrics.TrafficSeconds,
		metrics.QualityCalls,
	)
	if err != nil {
		return fmt.Errorf("upsert monthly metrics: %w", err)
	}
	return nil
}
