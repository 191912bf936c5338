package mockapi

import "academic-portal/internal/rbac"

// Student is a row of the sample dataset served to dashboards.
type Student struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	Year       int     `json:"year"`
	Attendance float64 `json:"attendance"`
	CGPA       float64 `json:"cgpa"`
}

var sampleStudents = []Student{
	{ID: 1, Name: "Aarav Shah", Department: "CSE", Year: 2, Attendance: 91.5, CGPA: 8.4},
	{ID: 2, Name: "Diya Menon", Department: "CSE", Year: 3, Attendance: 76.0, CGPA: 7.1},
	{ID: 3, Name: "Kabir Rao", Department: "ECE", Year: 1, Attendance: 88.2, CGPA: 8.9},
	{ID: 4, Name: "Meera Iyer", Department: "ECE", Year: 4, Attendance: 64.8, CGPA: 6.2},
	{ID: 5, Name: "Rohan Gupta", Department: "MECH", Year: 2, Attendance: 82.0, CGPA: 7.6},
}

// visibleStudents scopes the dataset by role: faculty and HODs see their own
// department, principal and admin see everything.
func visibleStudents(role rbac.Role, department string) []Student {
	scoped := role == rbac.RoleFaculty || role == rbac.RoleHOD
	out := make([]Student, 0, len(sampleStudents))
	for _, st := range sampleStudents {
		if scoped && st.Department != department {
			continue
		}
		out = append(out, st)
	}
	return out
}

// DepartmentSummary is one row of the principal's overview report.
type DepartmentSummary struct {
	Department    string  `json:"department"`
	Students      int     `json:"students"`
	AvgAttendance float64 `json:"avg_attendance"`
	AvgCGPA       float64 `json:"avg_cgpa"`
	LowAttendance int     `json:"low_attendance"`
}

const lowAttendanceThreshold = 75.0

func summarize(students []Student) []DepartmentSummary {
	index := map[string]int{}
	var out []DepartmentSummary
	for _, st := range students {
		i, ok := index[st.Department]
		if !ok {
			i = len(out)
			index[st.Department] = i
			out = append(out, DepartmentSummary{Department: st.Department})
		}
		row := &out[i]
		row.Students++
		row.AvgAttendance += st.Attendance
		row.AvgCGPA += st.CGPA
		if st.Attendance < lowAttendanceThreshold {
			row.LowAttendance++
		}
	}
	for i := range out {
		n := float64(out[i].Students)
		out[i].AvgAttendance /= n
		out[i].AvgCGPA /= n
	}
	return out
}
