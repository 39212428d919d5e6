package store

import (
	"context"
	"errors"
	"testing"
)

func TestDailyMetricsLatestRow(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	days := []DailyMetrics{
		{Handle: "alice", ReportDate: "2025-06-25", Leads: 4, TrafficSeconds: 9000, QualityCalls: 120},
		{Handle: "alice", ReportDate: "2025-06-26", Leads: 6, TrafficSeconds: 10800, QualityCalls: 300},
	}
	for _, day := range days {
		if err := sqlStore.UpsertDailyMetrics(ctx, day); err != nil {
			t.Fatalf("upsert daily metrics: %v", err)
		}
	}

	metrics, err := sqlStore.DailyMetricsByHandle(ctx, "@Alice")
	if err != nil {
		t.Fatalf("lookup daily metrics: %v", err)
	}
	if metrics.ReportDate != "2025-06-26" || metrics.Leads != 6 {
		t.Fatalf("expected newest daily row, got %+v", metrics)
	}
}

func TestDailyMetricsUpsertReplaces(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if err := sqlStore.UpsertDailyMetrics(ctx, DailyMetrics{Handle: "bob", ReportDate: "2025-06-26", Leads: 1}); err != nil {
		t.Fatalf("upsert daily metrics: %v", err)
	}
	if err := sqlStore.UpsertDailyMetrics(ctx, DailyMetrics{Handle: "bob", ReportDate: "2025-06-26", Leads: 9}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	metrics, err := sqlStore.DailyMetricsByHandle(ctx, "bob")
	if err != nil {
		t.Fatalf("lookup daily metrics: %v", err)
	}
	if metrics.Leads != 9 {
		t.Fatalf("expected replaced row, got %+v", metrics)
	}
}

func TestMetricsNotFound(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if _, err := sqlStore.DailyMetricsByHandle(ctx, "ghost"); !errors.Is(err, ErrMetricsNotFound) {
		t.Fatalf("expected ErrMetricsNotFound, got %v", err)
	}
	if _, err := sqlStore.MonthlyMetricsByHandle(ctx, "ghost"); !errors.Is(err, ErrMetricsNotFound) {
		t.Fatalf("expected ErrMetricsNotFound, got %v", err)
	}
}

func TestMonthlyMetricsLatestRow(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	months := []MonthlyMetrics{
		{Handle: "carol", Month: "2025-05", Leads: 80},
		{Handle: "carol", Month: "2025-06", Leads: 110},
	}
	for _, month := range months {
		if err := sqlStore.UpsertMonthlyMetrics(ctx, month); err != nil {
			t.Fatalf("upsert monthly metrics: %v", err)
		}
	}

	metrics, err := sqlStore.MonthlyMetricsByHandle(ctx, "carol")
	if err != nil {
		t.Fatalf("lookup monthly metrics: %v", err)
	}
	if metrics.Month != "2025-06" || metrics.Leads != 110 {
		t.Fatalf("expected newest monthly row, got %+v", metrics)
	}
}
