package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/auth"
	"github.com/sakif/sendlinks/internal/model"
	"github.com/sakif/sendlinks/internal/service"
)

// ProfileHandler serves the home page, public profiles and the link editor.
type ProfileHandler struct {
	profiles *service.ProfileService
	render   *Renderer
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, render *Renderer, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		render:   render,
		logger:   logger,
	}
}

type indexPage struct {
	Users []model.User
}

type editPage struct {
	UserID     int64
	Categories []model.Category
	Values     model.LinkForm
}

// HandleIndex lists the first users.
//
// HTTP: GET /
func (h *ProfileHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	users, err := h.profiles.ListUsers(r.Context())
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}
	h.render.render(w, r, http.StatusOK, "index", pageData{Data: indexPage{Users: users}})
}

// HandleProfile shows a user's public page. Anyone may view it; the owner
// additionally gets an edit button.
//
// HTTP: GET /user/{id}
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	viewerID, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.profiles.GetProfile(r.Context(), id, viewerID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}
	h.render.render(w, r, http.StatusOK, "user", pageData{Data: profile})
}

// HandleEditPage shows the link editor prefilled with the stored values.
// The route sits behind auth.RequireAuth.
//
// HTTP: GET /user/{id}/edit
func (h *ProfileHandler) HandleEditPage(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	viewerID, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.profiles.GetProfile(r.Context(), id, viewerID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}
	if !profile.IsOwner {
		h.render.renderError(w, r, apperror.Forbidden("You can only edit your own profile."))
		return
	}

	h.render.render(w, r, http.StatusOK, "edit", pageData{Data: editPage{
		UserID:     id,
		Categories: model.Categories,
		Values:     profile.FormValues(),
	}})
}

// HandleEditSubmit applies the submitted links.
//
// HTTP: POST /user/{id}/edit (form: one field per category)
//
//   - success          → 303 /user/{id}
//   - not your profile → 403 page, nothing written
//   - value too long   → the form again, 400, with what was typed
func (h *ProfileHandler) HandleEditSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render.errorPage(w, r, http.StatusBadRequest, "Bad request", "The form could not be read.")
		return
	}
	viewerID, _ := auth.UserIDFromContext(r.Context())
	form := model.ParseLinkForm(r.PostForm)

	if err := h.profiles.UpsertLinks(r.Context(), viewerID, id, form); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.render.render(w, r, http.StatusBadRequest, "edit", pageData{
				Error: userMessage(err, "Please check your links."),
				Data: editPage{
					UserID:     id,
					Categories: model.Categories,
					Values:     form,
				},
			})
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	setFlash(w, "Your links were saved.")
	http.Redirect(w, r, "/user/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

// userIDParam parses the {id} route parameter. Anything that is not a
// positive integer cannot name a user.
func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
