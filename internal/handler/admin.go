package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pavelanni/survey/internal/admin"
	"github.com/pavelanni/survey/internal/export"
	"github.com/pavelanni/survey/internal/handler/views"
	"github.com/pavelanni/survey/internal/session"
	"github.com/pavelanni/survey/internal/survey"
)

func (h *Handler) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !h.sessions.IsAdmin(sess) {
		h.renderLogin(w, r, http.StatusOK, false)
		return
	}
	d := h.adminData(sess)
	d.JustGranted = r.URL.Query().Get("granted") == "1"
	if n, err := strconv.Atoi(r.URL.Query().Get("deleted")); err == nil {
		d.Deleted = n
	}
	h.renderAdmin(w, r, http.StatusOK, d)
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	switch h.gate.Verify(r.FormValue("secret")) {
	case admin.Idle:
		h.renderLogin(w, r, http.StatusOK, false)
	case admin.Denied:
		slog.Info("admin secret rejected", "session", sess.ID)
		h.renderLogin(w, r, http.StatusUnauthorized, true)
	case admin.Granted:
		if err := h.sessions.GrantAdmin(sess); err != nil {
			slog.Error("failed to grant admin", "session", sess.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		slog.Info("admin access granted", "session", sess.ID)
		http.Redirect(w, r, h.path("/admin?granted=1"), http.StatusSeeOther)
	}
}

func (h *Handler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := h.sessions.RevokeAdmin(sess); err != nil {
		slog.Error("failed to revoke admin", "session", sess.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

// handleDelete applies one batch of deletions. The indices refer to the list
// rendered at the posted revision.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	revision, err := strconv.ParseUint(r.PostForm.Get("revision"), 10, 64)
	if err != nil {
		http.Error(w, "invalid revision", http.StatusBadRequest)
		return
	}
	var indices []int
	for _, v := range r.PostForm["index"] {
		i, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid index", http.StatusBadRequest)
			return
		}
		indices = append(indices, i)
	}

	err = sess.Responses.DeleteAt(revision, indices)
	var notice string
	switch {
	case errors.Is(err, survey.ErrStaleSnapshot):
		notice = "DeleteStale"
	case errors.Is(err, survey.ErrIndexOutOfRange):
		notice = "DeleteOutOfRange"
	case err != nil:
		slog.Error("delete responses", "session", sess.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if notice != "" {
		slog.Warn("delete rejected", "session", sess.ID, "error", err)
		d := h.adminData(sess)
		d.Notice = notice
		h.renderAdmin(w, r, http.StatusConflict, d)
		return
	}

	slog.Info("responses deleted", "session", sess.ID, "count", len(indices), "remaining", sess.Responses.Len())
	http.Redirect(w, r, h.path("/admin?deleted="+strconv.Itoa(len(dedupe(indices)))), http.StatusSeeOther)
}

func dedupe(indices []int) map[int]bool {
	set := make(map[int]bool, len(indices))
	for _, i := range indices {
		set[i] = true
	}
	return set
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, h.config.Form.Columns(), sess.Responses.All()); err != nil {
		slog.Error("export responses", "session", sess.ID, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// handleSummary blocks until the summarization service answers or fails.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	snap := sess.Responses.Snapshot()

	table, err := export.Table(h.config.Form.Columns(), snap.Records)
	if err != nil {
		slog.Error("render summary table", "session", sess.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	result := h.llm.Summarize(r.Context(), table, len(snap.Records))

	d := views.NewAdminData(snap)
	d.SummaryEnabled = h.llm.Enabled()
	d.Summary = &result
	h.renderAdmin(w, r, http.StatusOK, d)
}

func (h *Handler) adminData(sess *session.Session) views.AdminData {
	d := views.NewAdminData(sess.Responses.Snapshot())
	d.SummaryEnabled = h.llm.Enabled()
	return d
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, failed bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.AdminLoginPage(views.LoginData{Failed: failed}).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, d views.AdminData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.AdminPage(d).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
