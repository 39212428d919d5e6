package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldops/concierge/internal/config"
	"github.com/fieldops/concierge/internal/store"
)

// The directory CSV header. Columns after role are optional per row.
var directoryHeader = []string{
	"handle", "full_name", "city", "team", "role",
	"planned_leads", "escalation_contact", "team_lead", "crm_url",
}

var metricsHeader = []string{
	"handle", "report_date", "leads", "traffic_seconds", "quality_calls",
}

func newImportDirectoryCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import-directory <file.csv>",
		Short: "Replace the employee directory from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employees, err := readDirectoryCSV(args[0])
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				if err := st.ReplaceDirectory(ctx, employees); err != nil {
					return err
				}
				logger.Info("directory imported", "employees", len(employees))
				cmd.Printf("Imported %d employees.\n", len(employees))
				return nil
			})
		},
	}
}

func newImportMetricsCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import-metrics <file.csv>",
		Short: "Upsert daily metrics from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readMetricsCSV(args[0])
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				for _, row := range rows {
					if err := st.UpsertDailyMetrics(ctx, row); err != nil {
						return fmt.Errorf("upsert metrics for %s: %w", row.Handle, err)
					}
				}
				logger.Info("metrics imported", "rows", len(rows))
				cmd.Printf("Imported %d metric rows.\n", len(rows))
				return nil
			})
		},
	}
}

func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	cfg := config.FromEnv()
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.AutoMigrate(ctx); err != nil {
		return err
	}
	return fn(ctx, st)
}

func readDirectoryCSV(path string) ([]store.Employee, error) {
	rows, err := readCSV(path, directoryHeader, 5)
	if err != nil {
		return nil, err
	}

	employees := make([]store.Employee, 0, len(rows))
	for i, row := range rows {
		planned := 0
		if value := field(row, 5); value != "" {
			planned, err = strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("row %d: planned_leads: %w", i+2, err)
			}
		}
		employees = append(employees, store.Employee{
			Handle:            field(row, 0),
			FullName:          field(row, 1),
			City:              field(row, 2),
			Team:              field(row, 3),
			Role:              field(row, 4),
			PlannedLeads:      planned,
			EscalationContact: field(row, 6),
			TeamLead:          field(row, 7),
			CRMURL:            field(row, 8),
		})
	}
	return employees, nil
}

func readMetricsCSV(path string) ([]store.DailyMetrics, error) {
	rows, err := readCSV(path, metricsHeader, len(metricsHeader))
	if err != nil {
		return nil, err
	}

	metrics := make([]store.DailyMetrics, 0, len(rows))
	for i, row := range rows {
		leads, err := strconv.Atoi(field(row, 2))
		if err != nil {
			return nil, fmt.Errorf("row %d: leads: %w", i+2, err)
		}
		traffic, err := strconv.Atoi(field(row, 3))
		if err != nil {
			return nil, fmt.Errorf("row %d: traffic_seconds: %w", i+2, err)
		}
		calls, err := strconv.Atoi(field(row, 4))
		if err != nil {
			return nil, fmt.Errorf("row %d: quality_calls: %w", i+2, err)
		}
		metrics = append(metrics, store.DailyMetrics{
			Handle:         field(row, 0),
			ReportDate:     field(row, 1),
			Leads:          leads,
			TrafficSeconds: traffic,
			QualityCalls:   calls,
		})
	}
	return metrics, nil
}

// readCSV reads path, validates the header prefix and returns data rows with
// at least minFields columns.
func readCSV(path string, header []string, minFields int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(first, header, minFields); err != nil {
		return nil, err
	}

	var rows [][]string
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if len(row) < minFields {
			return nil, fmt.Errorf("row %d: expected at least %d fields, got %d", line, minFields, len(row))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func checkHeader(got, want []string, minFields int) error {
	if len(got) < minFields {
		return fmt.Errorf("header has %d columns, expected at least %d", len(got), minFields)
	}
	for i, column := range got {
		if i >= len(want) {
			break
		}
		if !strings.EqualFold(strings.TrimSpace(column), want[i]) {
			return fmt.Errorf("header column %d is %q, expected %q", i+1, column, want[i])
		}
	}
	return nil
}

func field(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
