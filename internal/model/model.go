package model

import (
	"context"
	"strconv"
	"time"
)

// Column names of a response record, in canonical export order.
const (
	ColSubmittedAt  = "submitted_at"
	ColName         = "name"
	ColAge          = "age"
	ColSchool       = "school"
	ColDepartment   = "department"
	ColStudentID    = "student_id"
	ColHobbies      = "hobbies"
	ColGrade        = "grade"
	ColSatisfaction = "satisfaction"
	ColPlan         = "plan"
	ColLanguages    = "languages"
	ColComment      = "comment"
)

// TimestampLayout formats the submission time with the local clock.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	basicColumns    = []string{ColSubmittedAt, ColName, ColAge, ColSchool, ColDepartment, ColStudentID, ColHobbies}
	extendedColumns = []string{ColGrade, ColSatisfaction, ColPlan, ColLanguages, ColComment}
)

// AllColumns returns every known column in canonical order.
func AllColumns() []string {
	cols := make([]string, 0, len(basicColumns)+len(extendedColumns))
	cols = append(cols, basicColumns...)
	return append(cols, extendedColumns...)
}

// FormVariant selects which questions the survey form asks.
type FormVariant string

const (
	// FormBasic asks for personal, affiliation and hobby data only.
	FormBasic FormVariant = "basic"
	// FormExtended adds grade, satisfaction, plan, languages and a comment.
	FormExtended FormVariant = "extended"
)

// IsValid reports whether v names a known form variant.
func (v FormVariant) IsValid() bool {
	return v == FormBasic || v == FormExtended
}

// Columns returns the columns a record built under v carries.
func (v FormVariant) Columns() []string {
	if v == FormExtended {
		return AllColumns()
	}
	return append([]string(nil), basicColumns...)
}

// Field is one named value of a response record.
type Field struct {
	Name  string
	Value string
}

// ExtendedAnswers holds the questions only the extended form asks.
type ExtendedAnswers struct {
	Grade        string
	Satisfaction string
	Plan         string
	Languages    string
	Comment      string
}

// Response is one respondent's answers plus the submission timestamp.
// Multi-value answers are kept as their joined text.
type Response struct {
	SubmittedAt string
	Name        string
	Age         int
	School      string
	Department  string
	StudentID   string
	Hobbies     string
	Extended    *ExtendedAnswers
}

// Fields returns the record as an ordered field mapping.
func (r Response) Fields() []Field {
	fields := []Field{
		{ColSubmittedAt, r.SubmittedAt},
		{ColName, r.Name},
		{ColAge, strconv.Itoa(r.Age)},
		{ColSchool, r.School},
		{ColDepartment, r.Department},
		{ColStudentID, r.StudentID},
		{ColHobbies, r.Hobbies},
	}
	if r.Extended != nil {
		fields = append(fields,
			Field{ColGrade, r.Extended.Grade},
			Field{ColSatisfaction, r.Extended.Satisfaction},
			Field{ColPlan, r.Extended.Plan},
			Field{ColLanguages, r.Extended.Languages},
			Field{ColComment, r.Extended.Comment},
		)
	}
	return fields
}

// Value returns the value of the named column and whether the record has it.
func (r Response) Value(col string) (string, bool) {
	for _, f := range r.Fields() {
		if f.Name == col {
			return f.Value, true
		}
	}
	return "", false
}

// Session is the registry entry of one interactive session.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastSeen   time.Time
	AdminUntil *time.Time
}

// AdminActive reports whether the session holds an admin grant at now.
func (s Session) AdminActive(now time.Time) bool {
	return s.AdminUntil != nil && now.Before(*s.AdminUntil)
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	Form          FormVariant
	BasePath      string        // URL prefix for sub-path deployments (e.g. "/survey")
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
	SessionTTL    time.Duration // idle time after which a session and its responses are dropped
	AdminTTL      time.Duration
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
