// Package web serves the user-center HTML pages. Pages are rendered once on
// the server; the embedded app.js drives them against /api/users.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/user-center/internal/domain"
)

const ListPath = "/user-center/users"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var statusLabels = map[domain.UserStatus]string{
	domain.UserStatusActive:   "正常",
	domain.UserStatusInactive: "未激活",
	domain.UserStatusBanned:   "已封禁",
}

type pageData struct {
	Title        string
	Page         string
	UserID       string
	Query        string
	AvatarUpload bool
	Statuses     []domain.UserStatus
}

type Pages struct {
	pages        map[string]*template.Template
	avatarUpload bool
	logger       *slog.Logger
}

// NewPages parses the embedded templates. avatarUpload toggles the file input
// on the edit page.
func NewPages(logger *slog.Logger, avatarUpload bool) (*Pages, error) {
	if logger == nil {
		logger = slog.Default()
	}
	funcs := template.FuncMap{
		"statusLabel": func(s domain.UserStatus) string { return statusLabels[s] },
	}
	p := &Pages{pages: map[string]*template.Template{}, avatarUpload: avatarUpload, logger: logger}
	for _, name := range []string{"list", "edit", "new"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/fields.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, ListPath, http.StatusFound)
}

func (p *Pages) List(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "list", pageData{Title: "用户管理", Query: strings.TrimSpace(r.URL.Query().Get("q"))})
}

func (p *Pages) New(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "new", pageData{Title: "新建用户", Statuses: userStatuses()})
}

func (p *Pages) Edit(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "edit", pageData{
		Title:        "编辑用户",
		UserID:       chi.URLParam(r, "id"),
		AvatarUpload: p.avatarUpload,
		Statuses:     userStatuses(),
	})
}

// Static serves the embedded assets; mount it under /static/.
func (p *Pages) Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.Page = name
	var buf bytes.Buffer
	if err := p.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.ErrorContext(r.Context(), "render page failed", "page", name, "error", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func userStatuses() []domain.UserStatus {
	return []domain.UserStatus{domain.UserStatusActive, domain.UserStatusInactive, domain.UserStatusBanned}
}
