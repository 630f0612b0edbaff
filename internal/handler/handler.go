package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pavelanni/survey/internal/admin"
	"github.com/pavelanni/survey/internal/handler/views"
	"github.com/pavelanni/survey/internal/llm"
	"github.com/pavelanni/survey/internal/model"
	"github.com/pavelanni/survey/internal/session"
	"github.com/pavelanni/survey/internal/survey"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	sessions *session.Manager
	gate     *admin.Gate
	llm      *llm.Client
	config   model.Config
	now      func() time.Time
}

// New creates a new Handler.
func New(sm *session.Manager, g *admin.Gate, l *llm.Client, cfg model.Config) (*Handler, error) {
	if !cfg.Form.IsValid() {
		return nil, errors.New("unknown form variant: " + string(cfg.Form))
	}
	return &Handler{sessions: sm, gate: g, llm: l, config: cfg, now: time.Now}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handleForm)
		r.Post("/submit", h.handleSubmit)
		r.Get("/admin", h.handleAdminPage)
		r.Post("/admin/login", h.handleAdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/admin/logout", h.handleAdminLogout)
			r.Post("/admin/delete", h.handleDelete)
			r.Get("/admin/export.csv", h.handleExport)
			r.Post("/admin/summary", h.handleSummary)
		})
	})
}

// BasePathMiddleware stores the configured URL prefix in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes p with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, views.FormData{
		Variant:   h.config.Form,
		Submitted: r.URL.Query().Get("submitted") == "1",
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	sub := survey.SubmissionFromForm(r.PostForm)
	resp, err := survey.Build(h.config.Form, sub, h.now())
	if errors.Is(err, survey.ErrNameRequired) {
		h.renderForm(w, r, http.StatusUnprocessableEntity, views.FormData{
			Variant: h.config.Form,
			Values:  sub,
			Warning: "NameRequired",
		})
		return
	}
	if err != nil {
		slog.Error("build response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sess.Responses.Append(resp)
	slog.Info("response submitted", "session", sess.ID, "count", sess.Responses.Len())
	http.Redirect(w, r, h.path("/?submitted=1"), http.StatusSeeOther)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, d views.FormData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.FormPage(d).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
