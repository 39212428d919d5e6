package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestReadDirectoryCSV(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"handle,full_name,city,team,role,planned_leads,escalation_contact,team_lead,crm_url",
		"msales,Maria Sales,Lisbon,Alpha,manager,5,@supervisor,@lead,https://crm.example/m",
		"jteam,Joao Teixeira,Porto,Beta,admin,,,",
	}, "\n"))

	employees, err := readDirectoryCSV(path)
	if err != nil {
		t.Fatalf("readDirectoryCSV: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("employees = %d, want 2", len(employees))
	}
	first := employees[0]
	if first.Handle != "msales" || first.City != "Lisbon" || first.PlannedLeads != 5 {
		t.Fatalf("first = %+v", first)
	}
	second := employees[1]
	if second.Role != "admin" || second.PlannedLeads != 0 || second.CRMURL != "" {
		t.Fatalf("optional columns should default: %+v", second)
	}
}

func TestReadDirectoryCSVRejectsBadHeader(t *testing.T) {
	path := writeCSV(t, "username,name,city,team,role\nmsales,Maria,Lisbon,Alpha,manager\n")
	if _, err := readDirectoryCSV(path); err == nil {
		t.Fatal("expected header error")
	}
}

func TestReadDirectoryCSVRejectsShortRow(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"handle,full_name,city,team,role",
		"msales,Maria Sales,Lisbon",
	}, "\n"))
	if _, err := readDirectoryCSV(path); err == nil {
		t.Fatal("expected short row error")
	}
}

func TestReadMetricsCSV(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"handle,report_date,leads,traffic_seconds,quality_calls",
		"msales,2025-03-10,4,5400,11",
	}, "\n"))

	rows, err := readMetricsCSV(path)
	if err != nil {
		t.Fatalf("readMetricsCSV: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].TrafficSeconds != 5400 || rows[0].QualityCalls != 11 {
		t.Fatalf("row = %+v", rows[0])
	}
}

func TestReadMetricsCSVRejectsBadNumbers(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"handle,report_date,leads,traffic_seconds,quality_calls",
		"msales,2025-03-10,four,5400,11",
	}, "\n"))
	if _, err := readMetricsCSV(path); err == nil {
		t.Fatal("expected number parse error")
	}
}
