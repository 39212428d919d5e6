package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrDirectoryAmbiguous = errors.New("directory holds conflicting rows for handle")
	ErrUnknownAttribute   = errors.New("unknown directory attribute")
)

// Employee mirrors one row of the externally owned employee directory.
// The bot only reads these rows at runtime; writes happen through the
// import tooling.
type Employee struct {
	Handle            string
	FullName          string
	City              string
	Team              string
	Role              string
	PlannedLeads      int
	EscalationContact string
	TeamLead          string
	CRMURL            string
}

const employeeColumns = `handle, full_name, city, team, role, planned_leads, escalation_contact, team_lead, crm_url`

// filterableAttributes are the directory columns broadcast filters may target.
var filterableAttributes = map[string]string{
	"city": "city",
	"team": "team",
	"role": "role",
}

// EmployeeByHandle returns the single directory row for a handle. The
// directory invariant is that handles are unique; a second row is reported as
// ErrDirectoryAmbiguous rather than picking one arbitrarily.
func (s *Store) EmployeeByHandle(ctx context.Context, handle string) (Employee, error) {
	normalized := NormalizeHandle(handle)
	if normalized == "" {
		return Employee{}, ErrEmployeeNotFound
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE handle = ? LIMIT 2`,
		normalized,
	)
	if err != nil {
		return Employee{}, fmt.Errorf("lookup employee: %w", err)
	}
	defer rows.Close()

	matches := []Employee{}
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return Employee{}, err
		}
		matches = append(matches, employee)
	}
	if err := rows.Err(); err != nil {
		return Employee{}, fmt.Errorf("iterate employees: %w", err)
	}
	switch len(matches) {
	case 0:
		return Employee{}, ErrEmployeeNotFound
	case 1:
		return matches[0], nil
	default:
		return Employee{}, ErrDirectoryAmbiguous
	}
}

// EmployeesByAttribute returns every directory row whose attribute column
// equals value. Only allow-listed columns are queryable.
func (s *Store) EmployeesByAttribute(ctx context.Context, attribute, value string) ([]Employee, error) {
	column, ok := filterableAttributes[strings.ToLower(strings.TrimSpace(attribute))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, attribute)
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE `+column+` = ? ORDER BY handle`,
		strings.TrimSpace(value),
	)
	if err != nil {
		return nil, fmt.Errorf("filter employees: %w", err)
	}
	defer rows.Close()

	employees := []Employee{}
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

// InsertEmployee adds a directory row. Used by the import tooling and tests;
// the running bot never writes the directory.
func (s *Store) InsertEmployee(ctx context.Context, employee Employee) error {
	handle := NormalizeHandle(employee.Handle)
	if handle == "" {
		return fmt.Errorf("insert employee: empty handle")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO employees (handle, full_name, city, team, role, planned_leads, escalation_contact, team_lead, crm_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		handle,
		strings.TrimSpace(employee.FullName),
		strings.TrimSpace(employee.City),
		strings.TrimSpace(employee.Team),
		strings.TrimSpace(employee.Role),
		employee.PlannedLeads,
		NormalizeHandle(employee.EscalationContact),
		NormalizeHandle(employee.TeamLead),
		nullIfEmpty(strings.TrimSpace(employee.CRMURL)),
	)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// ReplaceDirectory swaps the entire employee directory mirror for the given
// rows in one transaction.
func (s *Store) ReplaceDirectory(ctx context.Context, employees []Employee) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM employees`); err != nil {
		return fmt.Errorf("clear directory: %w", err)
	}
	for _, employee := range employees {
		handle := NormalizeHandle(employee.Handle)
		if handle == "" {
			return fmt.Errorf("replace directory: empty handle")
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO employees (handle, full_name, city, team, role, planned_leads, escalation_contact, team_lead, crm_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			handle,
			strings.TrimSpace(employee.FullName),
			strings.TrimSpace(employee.City),
			strings.TrimSpace(employee.Team),
			strings.TrimSpace(employee.Role),
			employee.PlannedLeads,
			NormalizeHandle(employee.EscalationContact),
			NormalizeHandle(employee.TeamLead),
			nullIfEmpty(strings.TrimSpace(employee.CRMURL)),
		); err != nil {
			return fmt.Errorf("insert employee: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit directory: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	employee := Employee{}
	var crmURL sql.NullString
	if err := row.Scan(
		&employee.Handle,
		&employee.FullName,
		&employee.City,
		&employee.Team,
		&employee.Role,
		&employee.PlannedLeads,
		&employee.EscalationContact,
		&employee.TeamLead,
		&crmURL,
	); err != nil {
		return Employee{}, fmt.Errorf("scan employee: %w", err)
	}
	employee.CRMURL = crmURL.String
	return employee, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
