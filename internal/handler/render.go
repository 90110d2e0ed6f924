// Package handler contains the HTTP handlers: server-rendered pages for
// browsers and a small JSON read API.
//
// Handlers are the glue between HTTP and the services. They parse the
// request, call one service method, and turn the result (or the apperror
// it returned) into a page, a redirect, or a JSON body. No business rules
// live here.
//
// POST/REDIRECT/GET:
// Every successful form POST answers with 303 See Other to a GET page,
// never with HTML. Reloading the result page then repeats the GET, not the
// submission. Messages for the next page travel in a one-shot flash
// cookie (flash.go), which render pops and shows once.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/auth"
)

var pages = []string{"index", "register", "login", "user", "edit", "error"}

// Renderer executes the page templates.
//
// Each page is parsed together with base.html once at startup:
// base.html lays out the document and calls {{template "content" .}},
// the page file defines "content". Pages get their own template set so
// their "content" definitions don't overwrite each other.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewRenderer(templates fs.FS, logger *slog.Logger) (*Renderer, error) {
	r := &Renderer{
		pages:  make(map[string]*template.Template, len(pages)),
		logger: logger,
	}
	for _, name := range pages {
		tmpl, err := template.ParseFS(templates, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// pageData is what every template receives. Data carries the page's own
// values.
type pageData struct {
	ViewerID int64
	Flash    string
	Error    string
	Data     any
}

type errorPage struct {
	Status  int
	Title   string
	Message string
}

// render writes page with the given status. The page is rendered into a
// buffer first so a template failure can still become a clean 500.
func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data.ViewerID, _ = auth.UserIDFromContext(r.Context())
	if data.Flash == "" {
		data.Flash = popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError maps a service error onto an error page, the HTML twin of
// writeError. Unclassified errors are logged and shown as a generic 500.
func (rd *Renderer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		rd.NotFound(w, r)
	case errors.Is(err, apperror.ErrForbidden):
		rd.errorPage(w, r, http.StatusForbidden, "Forbidden",
			userMessage(err, "You don't have permission to do that."))
	case errors.Is(err, apperror.ErrValidation):
		rd.errorPage(w, r, http.StatusBadRequest, "Bad request",
			userMessage(err, "The request was not valid."))
	case errors.Is(err, apperror.ErrUnauthorized):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		rd.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		rd.errorPage(w, r, http.StatusInternalServerError, "Something went wrong",
			"Something went wrong on our side. Please try again.")
	}
}

// userMessage is the AppError's user-safe message, or fallback.
func userMessage(err error, fallback string) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// NotFound renders the 404 page. The router uses it for unmatched paths.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.errorPage(w, r, http.StatusNotFound, "Page not found",
		"The page you are looking for doesn't exist.")
}

func (rd *Renderer) errorPage(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	rd.render(w, r, status, "error", pageData{Data: errorPage{
		Status:  status,
		Title:   title,
		Message: message,
	}})
}
