// Package views renders the HTML pages as templ components.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/survey/internal/i18n"
	"github.com/pavelanni/survey/internal/llm"
	"github.com/pavelanni/survey/internal/model"
	"github.com/pavelanni/survey/internal/survey"
)

//go:embed templates/*.html
var templateFS embed.FS

// Placeholder funcs let the templates parse once; each render clones them
// with funcs bound to the request context.
var pages = template.Must(template.New("pages").Funcs(funcs(context.Background())).ParseFS(templateFS, "templates/*.html"))

func funcs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"t": func(id string) string { return appI18n.T(ctx, id) },
		"td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				if k, ok := kv[i].(string); ok {
					data[k] = kv[i+1]
				}
			}
			return appI18n.Td(ctx, id, data)
		},
		"tp":    func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"col":   func(name string) string { return appI18n.T(ctx, "Col_"+name) },
		"path":  func(p string) string { return model.BasePathFromContext(ctx) + p },
		"csrf":  func() string { return model.CSRFTokenFromContext(ctx) },
		"langs": appI18n.Languages,
		"inc":   func(i int) int { return i + 1 },
		"has":   func(list []string, v string) bool { return contains(list, v) },
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tmpl, err := pages.Clone()
		if err != nil {
			return err
		}
		return tmpl.Funcs(funcs(ctx)).ExecuteTemplate(w, name, data)
	})
}

// FormData is the survey form page.
type FormData struct {
	Variant   model.FormVariant
	Values    survey.Submission
	Warning   string // message id
	Submitted bool
}

// Extended reports whether the extended questions are shown.
func (d FormData) Extended() bool { return d.Variant == model.FormExtended }

// Catalogs exposes the option lists to the template, keyed by the form field
// each one answers.
func (d FormData) Catalogs() map[string]model.Catalog {
	out := make(map[string]model.Catalog)
	for _, c := range []model.Catalog{model.Hobbies, model.Grades, model.Satisfactions, model.Plans, model.Languages} {
		out[c.Name] = c
	}
	return out
}

// AgeBounds returns the slider limits.
func (d FormData) AgeBounds() [2]int { return [2]int{survey.MinAge, survey.MaxAge} }

// FormPage renders the survey form.
func FormPage(d FormData) templ.Component {
	if d.Values.Age == 0 {
		d.Values.Age = survey.DefaultAge
	}
	return render("form", d)
}

// LoginData is the locked admin page.
type LoginData struct {
	Failed bool
}

// AdminLoginPage renders the password prompt.
func AdminLoginPage(d LoginData) templ.Component {
	return render("login", d)
}

// RecordView is one response as shown in the admin view.
type RecordView struct {
	Index  int
	Name   string
	Fields []model.Field
}

// AdminData is the unlocked admin page.
type AdminData struct {
	Records        []RecordView
	Revision       uint64
	JustGranted    bool
	Notice         string // message id
	Deleted        int
	Summary        *llm.Result
	SummaryEnabled bool
}

// NewAdminData builds the admin view from a store snapshot.
func NewAdminData(snap survey.Snapshot) AdminData {
	d := AdminData{Revision: snap.Revision}
	for i, r := range snap.Records {
		d.Records = append(d.Records, RecordView{Index: i, Name: r.Name, Fields: r.Fields()})
	}
	return d
}

// AdminPage renders the management view.
func AdminPage(d AdminData) templ.Component {
	return render("admin", d)
}
