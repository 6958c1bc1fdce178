package repository_test

import (
	"testing"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	testingutil "github.com/amirphl/Susanoo/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewLinkRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestUser(models.TierPro)
		require.NoError(t, err)

		t.Run("SaveAndByShortCode", func(t *testing.T) {
			link := &models.Link{ShortCode: "aB", LongURL: "https://example.com/a", UserID: &owner.ID}
			require.NoError(t, repo.Save(ctx, link))
			assert.NotZero(t, link.ID)

			found, err := repo.ByShortCode(ctx, "aB")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, link.ID, found.ID)
			assert.Equal(t, "https://example.com/a", found.LongURL)
			assert.Zero(t, found.ClickCount)
		})

		t.Run("ByShortCodeIsCaseSensitive", func(t *testing.T) {
			found, err := repo.ByShortCode(ctx, "ab")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("DuplicateShortCodeRejected", func(t *testing.T) {
			err := repo.Save(ctx, &models.Link{ShortCode: "aB", LongURL: "https://example.com/other"})
			require.Error(t, err)
			assert.True(t, repository.IsDuplicateKey(err))
		})

		t.Run("ShortCodeExists", func(t *testing.T) {
			exists, err := repo.ShortCodeExists(ctx, "aB")
			require.NoError(t, err)
			assert.True(t, exists)

			exists, err = repo.ShortCodeExists(ctx, "zz")
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("IncrementClickCount", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("inc", owner, nil)
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				require.NoError(t, repo.IncrementClickCount(ctx, link.ID))
			}
			found, err := repo.ByID(ctx, link.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), found.ClickCount)

			assert.Error(t, repo.IncrementClickCount(ctx, 999999))
		})

		t.Run("TargetByShortCodeCarriesOwnerTier", func(t *testing.T) {
			expires := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
			_, err := fixtures.CreateTestLink("tgt", owner, &expires)
			require.NoError(t, err)

			target, err := repo.TargetByShortCode(ctx, "tgt")
			require.NoError(t, err)
			require.NotNil(t, target)
			assert.Equal(t, "https://example.com/tgt", target.LongURL)
			require.NotNil(t, target.OwnerTier)
			assert.Equal(t, models.TierPro, *target.OwnerTier)
			require.NotNil(t, target.ExpiresAt)
			assert.True(t, target.ExpiresAt.Equal(expires))
		})

		t.Run("TargetByShortCodeAnonymous", func(t *testing.T) {
			_, err := fixtures.CreateTestLink("anon", nil, nil)
			require.NoError(t, err)

			target, err := repo.TargetByShortCode(ctx, "anon")
			require.NoError(t, err)
			require.NotNil(t, target)
			assert.Nil(t, target.UserID)
			assert.Nil(t, target.OwnerTier)
		})

		t.Run("TargetByShortCodeMissing", func(t *testing.T) {
			target, err := repo.TargetByShortCode(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, target)
		})

		t.Run("ByFilterPersonalAndTeam", func(t *testing.T) {
			team, err := fixtures.CreateTestTeam(owner)
			require.NoError(t, err)
			teamLink := &models.Link{ShortCode: "team1", LongURL: "https://example.com/t", UserID: &owner.ID, TeamID: &team.ID}
			require.NoError(t, repo.Save(ctx, teamLink))

			personal, err := repo.ByFilter(ctx, models.LinkFilter{UserID: &owner.ID, PersonalOnly: true}, "id DESC", 0, 0)
			require.NoError(t, err)
			for _, l := range personal {
				assert.Nil(t, l.TeamID)
			}

			teamLinks, err := repo.ByFilter(ctx, models.LinkFilter{TeamID: &team.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, teamLinks, 1)
			assert.Equal(t, "team1", teamLinks[0].ShortCode)

			count, err := repo.Count(ctx, models.LinkFilter{UserID: &owner.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(len(personal)+1), count)
		})

		t.Run("CountCreatedAfter", func(t *testing.T) {
			all, err := repo.Count(ctx, models.LinkFilter{UserID: &owner.ID})
			require.NoError(t, err)

			past := time.Now().UTC().Add(-time.Hour)
			n, err := repo.Count(ctx, models.LinkFilter{UserID: &owner.ID, CreatedAfter: &past})
			require.NoError(t, err)
			assert.Equal(t, all, n)

			future := time.Now().UTC().Add(time.Hour)
			n, err = repo.Count(ctx, models.LinkFilter{UserID: &owner.ID, CreatedAfter: &future})
			require.NoError(t, err)
			assert.Zero(t, n)
		})

		t.Run("DeleteByShortCodeRemovesClicks", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("del", owner, nil)
			require.NoError(t, err)
			for i := 0; i < 2; i++ {
				_, err := fixtures.CreateTestClick(link, time.Now().UTC())
				require.NoError(t, err)
			}

			require.NoError(t, repo.DeleteByShortCode(ctx, "del"))

			found, err := repo.ByShortCode(ctx, "del")
			require.NoError(t, err)
			assert.Nil(t, found)

			var remaining int64
			require.NoError(t, testDB.DB.Model(&models.Click{}).Where("link_id = ?", link.ID).Count(&remaining).Error)
			assert.Zero(t, remaining)

			// Deleting again is a no-op.
			assert.NoError(t, repo.DeleteByShortCode(ctx, "del"))
		})

		return nil
	})
	require.NoError(t, err)
}
