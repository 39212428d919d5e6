// Package report renders the daily report templates agents paste into their
// team channels. Templates are prefilled from the caller's directory profile
// and the latest metric rows when those exist.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldops/concierge/internal/store"
)

// Builder renders report templates. The escalation contact is the fallback
// when the profile has none.
type Builder struct {
	escalationContact string
}

func NewBuilder(escalationContact string) *Builder {
	return &Builder{escalationContact: escalationContact}
}

// Morning is the start-of-day plan template.
func (b *Builder) Morning(employee store.Employee, metrics *store.DailyMetrics, date time.Time) string {
	lines := []string{
		"Adjust the numbers before sending!",
		"",
		"PLAN " + date.Format("02.01.2006"),
		"",
		fmt.Sprintf("LEADS: %d", plannedLeads(employee)),
		"TRAFFIC: " + trafficOrDefault(metrics, "03:00:00"),
		"QUALITY CALLS: " + qualityCallsOrDefault(metrics, "300"),
		"",
	}
	lines = append(lines, b.signature(employee, true)...)
	return strings.Join(lines, "\n")
}

// Midday is the interim progress template.
func (b *Builder) Midday(employee store.Employee, metrics *store.DailyMetrics, date time.Time) string {
	lines := []string{
		"Adjust the numbers before sending!",
		"",
		"INTERIM REPORT " + date.Format("02.01.2006"),
		"",
		"Leads: " + leadsOrDefault(metrics, "10"),
		"Traffic: " + trafficOrDefault(metrics, "01:54:39"),
		"Quality calls: " + qualityCallsOrDefault(metrics, "172"),
		"",
	}
	lines = append(lines, b.signature(employee, false)...)
	return strings.Join(lines, "\n")
}

// Evening is the end-of-day report template.
func (b *Builder) Evening(employee store.Employee, metrics *store.DailyMetrics, date time.Time) string {
	lines := []string{
		"Adjust the numbers before sending!",
		"",
		"REPORT " + date.Format("02.01.2006"),
		"",
		"Leads: " + leadsOrDefault(metrics, "22"),
		"Traffic: " + trafficOrDefault(metrics, "03:47:56"),
		"Quality calls: " + qualityCallsOrDefault(metrics, "288"),
		"",
		"Clock-in: 8:30",
		"Clock-out: 18:00",
		"",
	}
	lines = append(lines, b.signature(employee, true)...)
	return strings.Join(lines, "\n")
}

func (b *Builder) signature(employee store.Employee, withTeam bool) []string {
	lines := []string{"#" + hashtagName(employee.FullName)}
	if city := strings.TrimSpace(employee.City); city != "" {
		lines = append(lines, "#"+strings.ReplaceAll(city, " ", ""))
	}
	if withTeam {
		if team := strings.TrimSpace(employee.Team); team != "" {
			lines = append(lines, "#"+strings.ReplaceAll(team, " ", ""))
		}
	}
	contact := strings.TrimPrefix(strings.TrimSpace(employee.EscalationContact), "@")
	if contact == "" {
		contact = strings.TrimPrefix(strings.TrimSpace(b.escalationContact), "@")
	}
	if contact != "" {
		lines = append(lines, "@"+contact)
	}
	if lead := strings.TrimPrefix(strings.TrimSpace(employee.TeamLead), "@"); lead != "" {
		lines = append(lines, "@"+lead)
	}
	return lines
}

func plannedLeads(employee store.Employee) int {
	if employee.PlannedLeads > 0 {
		return employee.PlannedLeads
	}
	return 6
}

func leadsOrDefault(metrics *store.DailyMetrics, fallback string) string {
	if metrics == nil {
		return fallback
	}
	return fmt.Sprintf("%d", metrics.Leads)
}

func qualityCallsOrDefault(metrics *store.DailyMetrics, fallback string) string {
	if metrics == nil {
		return fallback
	}
	return fmt.Sprintf("%d", metrics.QualityCalls)
}

func trafficOrDefault(metrics *store.DailyMetrics, fallback string) string {
	if metrics == nil {
		return fallback
	}
	return formatTraffic(metrics.TrafficSeconds)
}

func formatTraffic(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func hashtagName(fullName string) string {
	trimmed := strings.TrimSpace(fullName)
	if trimmed == "" {
		return "NameSurname"
	}
	return strings.ReplaceAll(trimmed, " ", "")
}
