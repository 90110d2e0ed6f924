// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never a concrete store, so the
// same rules run against SQLite, MySQL, Postgres or the in-memory fakes
// in the tests. They return apperror values; the handler decides which
// status code each one becomes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/model"
	"github.com/sakif/sendlinks/internal/repository"
)

const (
	// HomePageUsers is how many users the home page lists.
	HomePageUsers = 10

	// MaxLinkLength applies to the stored value, after normalization.
	MaxLinkLength = 255
)

// ProfileService reads profiles and applies link edits.
type ProfileService struct {
	users   repository.UserRepository
	socials repository.SocialRepository
	logger  *slog.Logger
}

func NewProfileService(users repository.UserRepository, socials repository.SocialRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		users:   users,
		socials: socials,
		logger:  logger,
	}
}

// Profile is a user's public page.
type Profile struct {
	User  *model.User
	Links []model.Social
	// IsOwner reports whether the viewer is the profile's user.
	IsOwner bool
}

// Link returns the stored link for c, or "".
func (p *Profile) Link(c model.Category) string {
	for _, l := range p.Links {
		if l.Category == c {
			return l.Link
		}
	}
	return ""
}

// FormValues prefills the edit form. Handle categories show the handle the
// user typed rather than the full URL it was expanded to.
func (p *Profile) FormValues() model.LinkForm {
	form := make(model.LinkForm, len(p.Links))
	for _, l := range p.Links {
		form[l.Category] = l.Category.Handle(l.Link)
	}
	return form
}

// ListUsers returns the first HomePageUsers users by id.
func (s *ProfileService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx, repository.ListOptions{Limit: HomePageUsers})
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/profile: listing users: %w", err)
	}
	return users, nil
}

// GetProfile loads userID's profile as seen by viewerID. A viewerID of 0
// is an anonymous visitor. An unknown userID is apperror.ErrNotFound no
// matter who is asking.
func (s *ProfileService) GetProfile(ctx context.Context, userID, viewerID int64) (*Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/profile: fetching user %d: %w", userID, err)
	}

	links, err := s.socials.ListSocials(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing links of user %d: %w", userID, err)
	}

	return &Profile{
		User:    user,
		Links:   links,
		IsOwner: viewerID != 0 && viewerID == userID,
	}, nil
}

// UpsertLinks applies an edit-form submission to targetUserID's links.
//
// Rules, in order:
//   - the target must exist (apperror.ErrNotFound)
//   - only the target themself may edit (apperror.ErrForbidden)
//   - blank values are skipped, leaving whatever was stored untouched
//   - handles are expanded to URLs and the result must fit MaxLinkLength
//
// Every surviving link is written in one batch: all of them or none.
func (s *ProfileService) UpsertLinks(ctx context.Context, sessionUserID, targetUserID int64, form model.LinkForm) error {
	if _, err := s.users.GetUserByID(ctx, targetUserID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/profile: fetching user %d: %w", targetUserID, err)
	}

	if sessionUserID != targetUserID {
		s.logger.Warn("rejected edit of another user's links",
			slog.Int64("sessionUserID", sessionUserID),
			slog.Int64("targetUserID", targetUserID),
		)
		return apperror.Forbidden("You can only edit your own profile.")
	}

	var links []model.Social
	for _, c := range model.Categories {
		value := strings.TrimSpace(form[c])
		if value == "" {
			continue
		}
		link := c.Normalize(value)
		if len(link) > MaxLinkLength {
			return apperror.ValidationFailed(c.String(),
				c.Label()+" must be "+strconv.Itoa(MaxLinkLength)+" characters or less.")
		}
		links = append(links, model.Social{UserID: targetUserID, Category: c, Link: link})
	}

	if len(links) == 0 {
		return nil
	}

	if err := s.socials.UpsertSocials(ctx, targetUserID, links); err != nil {
		s.logger.Error("failed to save links",
			slog.Int64("userID", targetUserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/profile: saving links of user %d: %w", targetUserID, err)
	}

	s.logger.Info("links updated",
		slog.Int64("userID", targetUserID),
		slog.Int("count", len(links)),
	)
	return nil
}
