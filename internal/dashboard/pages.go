package dashboard

import "html/template"

// Views are deliberately plain; the browser app owns real rendering.
const pageTemplates = `
{{define "layout_head"}}<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}} · Academic Portal</title></head><body>
{{if .Profile.Username}}<form method="post" action="/logout"><span>{{.Profile.DisplayName}} ({{.Profile.Role}})</span> <button type="submit">Log out</button></form>{{end}}
<h1>{{.Title}}</h1>{{end}}

{{define "layout_foot"}}</body></html>{{end}}

{{define "login"}}{{template "layout_head" .}}
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<input type="hidden" name="from" value="{{.From}}">
<label>Username <input name="username" value="{{.Username}}" autocomplete="username"></label>
<label>Password <input name="password" type="password" autocomplete="current-password"></label>
<button type="submit">Sign in</button>
</form>
{{template "layout_foot" .}}{{end}}

{{define "unauthorized"}}{{template "layout_head" .}}
<p>Your role does not have access to that page.</p>
<p><a href="{{.Home}}">Back to your dashboard</a></p>
{{template "layout_foot" .}}{{end}}

{{define "dashboard"}}{{template "layout_head" .}}
<p>Signed in as {{.Profile.Username}}{{if .Profile.Department}}, {{.Profile.Department}}{{end}}.</p>
{{if .Students}}<table>
<tr><th>Name</th><th>Department</th><th>Year</th><th>Attendance</th><th>CGPA</th></tr>
{{range .Students}}<tr><td>{{.Name}}</td><td>{{.Department}}</td><td>{{.Year}}</td><td>{{printf "%.1f" .Attendance}}</td><td>{{printf "%.1f" .CGPA}}</td></tr>
{{end}}</table>{{end}}
{{if .Departments}}<table>
<tr><th>Department</th><th>Students</th><th>Avg attendance</th><th>Avg CGPA</th><th>Below 75%</th></tr>
{{range .Departments}}<tr><td>{{.Department}}</td><td>{{.Students}}</td><td>{{printf "%.1f" .AvgAttendance}}</td><td>{{printf "%.2f" .AvgCGPA}}</td><td>{{.LowAttendance}}</td></tr>
{{end}}</table>{{end}}
{{if .Notice}}<p>{{.Notice}}</p>{{end}}
{{template "layout_foot" .}}{{end}}
`

func parseTemplates() *template.Template {
	return template.Must(template.New("pages").Parse(pageTemplates))
}
