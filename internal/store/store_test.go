package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidrapp/slidr/internal/models"
)

// exerciseDocumentStore runs the behaviour every DocumentStore shares.
func exerciseDocumentStore(t *testing.T, s DocumentStore) {
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	t.Run("users", func(t *testing.T) {
		user, err := s.CreateUser(ctx, "ada", "ada_l", "hash")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, uuid.Version(7), user.ID.Version())

		byID, err := s.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "ada", byID.Username)
		assert.Equal(t, "ada_l", byID.TwitterHandle)
		assert.Equal(t, "hash", byID.TokenHash)

		byName, err := s.GetUserByUsername(ctx, "ada")
		require.NoError(t, err)
		require.NotNil(t, byName)
		assert.Equal(t, user.ID, byName.ID)

		_, err = s.CreateUser(ctx, "ada", "", "other")
		assert.Error(t, err, "usernames are unique")

		missing, err := s.GetUserByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)

		missing, err = s.GetUserByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("presentations", func(t *testing.T) {
		owner, err := s.CreateUser(ctx, "grace", "", "hash")
		require.NoError(t, err)

		p := &models.Presentation{UID: owner.ID, Username: owner.Username, Title: "Compilers"}
		require.NoError(t, s.CreatePresentation(ctx, p))
		require.NotEmpty(t, p.ID)

		got, err := s.GetPresentation(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Compilers", got.Title)
		assert.Equal(t, owner.ID, got.UID)
		assert.Empty(t, got.Pages)
		assert.Nil(t, got.Rendered)

		count, err := s.CountPresentations(ctx)
		require.NoError(t, err)
		assert.Zero(t, count, "unrendered documents are not counted")

		require.NoError(t, s.SetOriginal(ctx, p.ID, "https://files/original.pdf"))

		pages := []string{"https://files/000.jpg", "https://files/001.jpg"}
		rendered := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, s.SetRendered(ctx, p.ID, "Compilers 101", pages, models.DefaultNotes(2), rendered))

		got, err = s.GetPresentation(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Compilers 101", got.Title)
		assert.Equal(t, pages, got.Pages)
		assert.Equal(t, "https://files/original.pdf", got.Original)
		require.NotNil(t, got.Rendered)
		assert.WithinDuration(t, rendered, *got.Rendered, time.Second)
		require.Len(t, got.Notes, 2)
		assert.Equal(t, []int{1}, got.Notes[1].PageIndices)

		notes := []models.Note{{PageIndices: []int{0, 1}, Markdown: "# intro"}}
		require.NoError(t, s.UpdatePreferences(ctx, p.ID, "Renamed", notes))

		got, err = s.GetPresentation(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, notes, got.Notes)
		assert.Equal(t, pages, got.Pages)

		count, err = s.CountPresentations(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		missing, err := s.GetPresentation(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("list rendered", func(t *testing.T) {
		owner, err := s.CreateUser(ctx, "linus", "", "hash")
		require.NoError(t, err)

		base := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
		var ids []string
		for i := 0; i < 3; i++ {
			p := &models.Presentation{UID: owner.ID, Username: owner.Username}
			require.NoError(t, s.CreatePresentation(ctx, p))
			require.NoError(t, s.SetRendered(ctx, p.ID, "deck", []string{"a"}, models.DefaultNotes(1), base.Add(time.Duration(i)*time.Minute)))
			ids = append(ids, p.ID)
		}
		pending := &models.Presentation{UID: owner.ID, Username: owner.Username}
		require.NoError(t, s.CreatePresentation(ctx, pending))

		all, total, err := s.ListRenderedPresentations(ctx, 100, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, total, "one from the presentations subtest plus three here")
		require.Len(t, all, 4)
		assert.Equal(t, ids, []string{all[1].ID, all[2].ID, all[3].ID})

		page, total, err := s.ListRenderedPresentations(ctx, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, page, 2)
		assert.Equal(t, ids[1], page[0].ID)
	})
}
