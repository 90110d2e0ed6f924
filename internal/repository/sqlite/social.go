package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/model"
	"github.com/sakif/sendlinks/internal/repository"
)

var _ repository.SocialRepository = (*DB)(nil)

// ListSocials returns a user's links in category display order.
// A user with no links (or no such user) yields an empty slice.
func (db *DB) ListSocials(ctx context.Context, userID int64) ([]model.Social, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, social, link, created_at, updated_at
		 FROM socials WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing socials for user %d: %w", userID, err)
	}
	defer rows.Close()

	links := []model.Social{}
	for rows.Next() {
		var s model.Social
		if err := rows.Scan(&s.UserID, &s.Category, &s.Link, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning social: %w", err)
		}
		links = append(links, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating socials: %w", err)
	}

	model.SortSocials(links)
	return links, nil
}

// UpsertSocials stores all links for userID in one transaction.
//
// Each link is first inserted. If the (user_id, social) key is taken the
// insert fails with a write conflict and the row is updated in place
// instead. A failed INSERT only aborts its own statement in SQLite, so the
// transaction stays usable for the UPDATE.
func (db *DB) UpsertSocials(ctx context.Context, userID int64, links []model.Social) error {
	if len(links) == 0 {
		return nil
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for i := range links {
			link := &links[i]
			link.UserID = userID
			link.UpdatedAt = now

			err := insertSocial(ctx, tx, link, now)
			if errors.Is(err, apperror.ErrWriteConflict) {
				err = updateSocial(ctx, tx, link)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func insertSocial(ctx context.Context, tx *sql.Tx, link *model.Social, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO socials (user_id, social, link, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		link.UserID, link.Category, link.Link, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.WriteConflict("social", fmt.Sprintf("%d/%s", link.UserID, link.Category))
		}
		return fmt.Errorf("sqlite: inserting %s link for user %d: %w", link.Category, link.UserID, err)
	}
	link.CreatedAt = now
	return nil
}

func updateSocial(ctx context.Context, tx *sql.Tx, link *model.Social) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE socials SET link = ?, updated_at = ? WHERE user_id = ? AND social = ?`,
		link.Link, link.UpdatedAt, link.UserID, link.Category,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating %s link for user %d: %w", link.Category, link.UserID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: %s link for user %d vanished during update", link.Category, link.UserID)
	}
	return nil
}
