package roster

import (
	"context"
	"strings"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/validate"
)

// ValidateStudent checks a new-student form the way the add-student
// dialog does, first failure wins.
func ValidateStudent(s apiclient.NewStudent) error {
	if strings.TrimSpace(s.Name) == "" {
		return validate.Failf("name", "Name is required")
	}
	if !validate.Email(s.Email) {
		return validate.Failf("email", "A valid email is required")
	}
	if s.IsACEMStudent && strings.TrimSpace(s.RollNo) == "" {
		return validate.Failf("rollNo", "Roll number is required for ACEM students")
	}
	if strings.TrimSpace(s.Branch) == "" {
		return validate.Failf("branch", "Branch is required")
	}
	if s.Semester < 1 || s.Semester > 8 {
		return validate.Failf("semester", "Semester must be between 1 and 8")
	}
	if strings.TrimSpace(s.Course) == "" {
		return validate.Failf("course", "Course is required")
	}
	if strings.TrimSpace(s.Specialization) == "" {
		return validate.Failf("specialization", "Specialization is required")
	}
	return nil
}

// AddStudent validates the form, creates the member on the backend and
// invalidates the cached roster. The caller appends the returned
// member to any open session so the new student is markable without a
// full roster reload.
func (l *Loader) AddStudent(ctx context.Context, clubID string, s apiclient.NewStudent) (apiclient.Member, error) {
	if err := ValidateStudent(s); err != nil {
		return apiclient.Member{}, err
	}
	m, err := l.API.AddStudent(ctx, clubID, s)
	if err != nil {
		return apiclient.Member{}, err
	}
	l.InvalidateRoster(ctx, clubID)
	return m, nil
}
