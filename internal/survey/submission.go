package survey

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/survey/internal/model"
)

// ErrNameRequired rejects a submission without a respondent name.
var ErrNameRequired = errors.New("name is required")

// Age bounds of the form slider.
const (
	MinAge     = 10
	MaxAge     = 100
	DefaultAge = 25
)

// Submission is the raw content of one form post.
type Submission struct {
	Name       string
	Age        int
	School     string
	Department string
	StudentID  string
	Hobbies    []string

	Grade        string
	Satisfaction string
	Plan         string
	Languages    []string
	Comment      string
}

// SubmissionFromForm reads a submission from posted form values. A missing or
// malformed age falls back to DefaultAge.
func SubmissionFromForm(form url.Values) Submission {
	age, err := strconv.Atoi(strings.TrimSpace(form.Get("age")))
	if err != nil {
		age = DefaultAge
	}
	return Submission{
		Name:         form.Get("name"),
		Age:          age,
		School:       form.Get("school"),
		Department:   form.Get("department"),
		StudentID:    form.Get("student_id"),
		Hobbies:      form["hobbies"],
		Grade:        form.Get("grade"),
		Satisfaction: form.Get("satisfaction"),
		Plan:         form.Get("plan"),
		Languages:    form["languages"],
		Comment:      form.Get("comment"),
	}
}

// Build validates sub and turns it into a response record stamped with now.
// Only the name is required; the age is clamped to [MinAge, MaxAge].
func Build(variant model.FormVariant, sub Submission, now time.Time) (model.Response, error) {
	name := strings.TrimSpace(sub.Name)
	if name == "" {
		return model.Response{}, ErrNameRequired
	}

	r := model.Response{
		SubmittedAt: now.Local().Format(model.TimestampLayout),
		Name:        name,
		Age:         min(max(sub.Age, MinAge), MaxAge),
		School:      cleanText(sub.School),
		Department:  cleanText(sub.Department),
		StudentID:   cleanText(sub.StudentID),
		Hobbies:     model.Hobbies.Join(sub.Hobbies),
	}
	if variant == model.FormExtended {
		r.Extended = &model.ExtendedAnswers{
			Grade:        model.Grades.Choose(sub.Grade),
			Satisfaction: model.Satisfactions.Choose(sub.Satisfaction),
			Plan:         model.Plans.Choose(sub.Plan),
			Languages:    model.Languages.Join(sub.Languages),
			Comment:      cleanText(sub.Comment),
		}
	}
	return r, nil
}

// newlines maps CRLF and lone CR to LF. Browsers send textarea line breaks as
// CRLF, and encoding/csv reads a quoted CRLF back as LF.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// cleanText trims a free-text answer and normalizes its line breaks.
func cleanText(s string) string {
	return strings.TrimSpace(newlines.Replace(s))
}
