package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/sendlinks/internal/service"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler serves the read-only JSON API and the health check.
type APIHandler struct {
	profiles *service.ProfileService
	store    Pinger
	logger   *slog.Logger
}

func NewAPIHandler(profiles *service.ProfileService, store Pinger, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		profiles: profiles,
		store:    store,
		logger:   logger,
	}
}

type userSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type linkResponse struct {
	Social string `json:"social"`
	Link   string `json:"link"`
}

type profileResponse struct {
	User  userSummary    `json:"user"`
	Links []linkResponse `json:"links"`
}

// HandleListUsers returns the users shown on the home page.
//
// HTTP: GET /api/users
//
//	[{"id":1,"name":"alice"}, ...]
func (h *APIHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.profiles.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]userSummary, 0, len(users))
	for _, u := range users {
		resp = append(resp, userSummary{ID: u.ID, Name: u.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetUser returns one public profile.
//
// HTTP: GET /api/users/{id}
//
//	{"user":{"id":1,"name":"alice"},"links":[{"social":"twitter","link":"https://www.twitter.com/alice"}]}
func (h *APIHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "user not found",
		})
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), id, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := profileResponse{
		User:  userSummary{ID: profile.User.ID, Name: profile.User.Name},
		Links: make([]linkResponse, 0, len(profile.Links)),
	}
	for _, l := range profile.Links {
		resp.Links = append(resp.Links, linkResponse{Social: l.Category.String(), Link: l.Link})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth pings the store.
//
// HTTP: GET /healthz → 200 {"status":"ok"} or 503 {"status":"db-down"}
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db-down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
