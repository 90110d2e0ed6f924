package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sendlinks/internal/model"
)

func TestUpsertSocials_InsertThenUpdateInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice", "a@x.com")

	require.NoError(t, db.UpsertSocials(ctx, user.ID, []model.Social{
		{Category: model.Twitter, Link: "https://www.twitter.com/alice"},
	}))
	require.NoError(t, db.UpsertSocials(ctx, user.ID, []model.Social{
		{Category: model.Twitter, Link: "https://www.twitter.com/bob"},
	}))

	links, err := db.ListSocials(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, links, 1, "second upsert must update, not add a row")
	assert.Equal(t, model.Twitter, links[0].Category)
	assert.Equal(t, "https://www.twitter.com/bob", links[0].Link)
	assert.Equal(t, user.ID, links[0].UserID)
}

func TestUpsertSocials_LeavesOtherCategoriesAlone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice", "a@x.com")

	require.NoError(t, db.UpsertSocials(ctx, user.ID, []model.Social{
		{Category: model.Facebook, Link: "fb"},
		{Category: model.YouTube, Link: "yt"},
	}))
	require.NoError(t, db.UpsertSocials(ctx, user.ID, []model.Social{
		{Category: model.YouTube, Link: "yt2"},
		{Category: model.Others, Link: "blog"},
	}))

	links, err := db.ListSocials(ctx, user.ID)
	require.NoError(t, err)

	got := map[model.Category]string{}
	for _, l := range links {
		got[l.Category] = l.Link
	}
	assert.Equal(t, map[model.Category]string{
		model.Facebook: "fb",
		model.YouTube:  "yt2",
		model.Others:   "blog",
	}, got)
}

func TestUpsertSocials_IsolatedPerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice", "a@x.com")
	bob := createTestUser(t, db, "bob", "b@x.com")

	require.NoError(t, db.UpsertSocials(ctx, alice.ID, []model.Social{{Category: model.Twitter, Link: "a"}}))
	require.NoError(t, db.UpsertSocials(ctx, bob.ID, []model.Social{{Category: model.Twitter, Link: "b"}}))

	aliceLinks, err := db.ListSocials(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceLinks, 1)
	assert.Equal(t, "a", aliceLinks[0].Link)
}

func TestUpsertSocials_RollsBackWholeBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice", "a@x.com")

	// The CHECK constraint rejects the unknown category, after twitter was
	// already written inside the same transaction.
	err := db.UpsertSocials(ctx, user.ID, []model.Social{
		{Category: model.Twitter, Link: "https://www.twitter.com/alice"},
		{Category: model.Category("myspace"), Link: "tom"},
	})
	require.Error(t, err)

	links, err := db.ListSocials(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, links, "a failed batch must not leave partial writes")
}

func TestUpsertSocials_UnknownUserFails(t *testing.T) {
	db := newTestDB(t)

	err := db.UpsertSocials(context.Background(), 404, []model.Social{
		{Category: model.Twitter, Link: "x"},
	})
	assert.Error(t, err, "foreign key must reject links for missing users")
}

func TestUpsertSocials_EmptyIsNoop(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.UpsertSocials(context.Background(), 1, nil))
}

func TestListSocials_DisplayOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice", "a@x.com")

	require.NoError(t, db.UpsertSocials(ctx, user.ID, []model.Social{
		{Category: model.Others, Link: "o"},
		{Category: model.ProfilePicture, Link: "p"},
		{Category: model.Instagram, Link: "i"},
	}))

	links, err := db.ListSocials(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, model.ProfilePicture, links[0].Category)
	assert.Equal(t, model.Instagram, links[1].Category)
	assert.Equal(t, model.Others, links[2].Category)
}

func TestDeletingUserCascadesToSocials(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice", "a@x.com")
	require.NoError(t, db.UpsertSocials(ctx, user.ID, []model.Social{
		{Category: model.Twitter, Link: "t"},
		{Category: model.Instagram, Link: "i"},
	}))

	_, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, user.ID)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM socials WHERE user_id = ?`, user.ID).Scan(&count))
	assert.Zero(t, count, "socials must be removed with their user")
}
