package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"clubconsole/internal/apiclient"
)

var header = []string{"Name", "Roll No", "Email", "Branch", "Semester", "Course", "Specialization", "ACEM Student", "Attendance"}

// Filename builds the download name for a roster export.
func Filename(clubID string, t time.Time) string {
	return fmt.Sprintf("attendance_%s_%s.csv", clubID, t.Format("2006-01-02"))
}

// WriteRoster writes the roster as CSV, one row per member. marks maps
// member id to "present"/"absent"; members without a mark get an empty
// Attendance cell. Quoting of commas is encoding/csv's job.
func WriteRoster(w io.Writer, members []apiclient.Member, marks map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, m := range members {
		acem := "No"
		if m.IsACEMStudent {
			acem = "Yes"
		}
		row := []string{
			m.Name,
			m.RollNo,
			m.Email,
			m.Branch,
			strconv.Itoa(m.Semester),
			m.Course,
			m.Specialization,
			acem,
			marks[m.ID],
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
