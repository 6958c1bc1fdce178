package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspaceStatsFlow(store *memStore, teams *memTeams, now time.Time) *WorkspaceStatsFlowImpl {
	f := NewWorkspaceStatsFlow(&memLinks{s: store}, &memClicks{s: store}, teams).(*WorkspaceStatsFlowImpl)
	f.now = func() time.Time { return now }
	return f
}

func TestWorkspaceStatsFlow_Personal(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	f := newTestWorkspaceStatsFlow(store, newMemTeams(), now)

	a := store.addLink(models.Link{ShortCode: "a", LongURL: "https://a", UserID: utils.ToPtr(uint(1)), ClickCount: 3, CreatedAt: now.AddDate(0, 0, -30)})
	b := store.addLink(models.Link{ShortCode: "b", LongURL: "https://b", UserID: utils.ToPtr(uint(1)), ClickCount: 2, CreatedAt: now.Add(-time.Hour)})
	// Team links and other users' links stay out of the personal workspace.
	store.addLink(models.Link{ShortCode: "t", LongURL: "https://t", UserID: utils.ToPtr(uint(1)), TeamID: utils.ToPtr(uint(10)), ClickCount: 50})
	other := store.addLink(models.Link{ShortCode: "o", LongURL: "https://o", UserID: utils.ToPtr(uint(2)), ClickCount: 9})

	store.addClick(models.Click{LinkID: a.ID, ClickedAt: now.AddDate(0, 0, -20), IPAddress: "1.1.1.1", Referer: "Direct"})
	store.addClick(models.Click{LinkID: a.ID, ClickedAt: now.AddDate(0, 0, -6).Add(-14 * time.Hour), IPAddress: "1.1.1.1", Referer: "Direct", Country: utils.ToPtr("DE"), DeviceType: utils.ToPtr("mobile")})
	store.addClick(models.Click{LinkID: a.ID, ClickedAt: now.Add(-time.Hour), IPAddress: "2.2.2.2", Referer: "https://news.example", Country: utils.ToPtr("DE"), DeviceType: utils.ToPtr("desktop")})
	store.addClick(models.Click{LinkID: b.ID, ClickedAt: now.Add(-2 * time.Hour), IPAddress: "3.3.3.3", Referer: "Direct"})
	store.addClick(models.Click{LinkID: other.ID, ClickedAt: now, IPAddress: "9.9.9.9", Referer: "Direct"})

	res, err := f.GetWorkspaceStats(context.Background(), actor(1, models.TierFree), &dto.WorkspaceStatsRequest{})
	require.NoError(t, err)

	assert.EqualValues(t, 2, res.TotalLinks)
	assert.EqualValues(t, 1, res.NewLinks)
	assert.EqualValues(t, 5, res.TotalClicks)
	assert.Equal(t, 4, res.SampledClicks)
	assert.Equal(t, 3, res.UniqueVisitors)
	assert.EqualValues(t, 2, res.PendingEnrichment)

	require.Len(t, res.Timeline, utils.WorkspaceTimelineDays)
	assert.Equal(t, dto.CountBucket{Key: "2026-06-04", Count: 1}, res.Timeline[0])
	assert.Equal(t, dto.CountBucket{Key: "2026-06-10", Count: 2}, res.Timeline[6])
	var inWindow int64
	for _, b := range res.Timeline {
		inWindow += b.Count
	}
	assert.EqualValues(t, 3, inWindow)

	assert.Equal(t, []dto.CountBucket{{Key: "DE", Count: 2}, {Key: unknownBucket, Count: 2}}, res.Countries)
	assert.Equal(t, dto.CountBucket{Key: "Direct", Count: 3}, res.Referers[0])
}

func TestWorkspaceStatsFlow_TeamScope(t *testing.T) {
	store := newMemStore()
	teams := newMemTeams()
	teams.addTeam(10, 1)
	teams.addMember(10, 2, models.TeamRoleMember)
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	f := newTestWorkspaceStatsFlow(store, teams, now)

	store.addLink(models.Link{ShortCode: "t1", LongURL: "https://t", UserID: utils.ToPtr(uint(1)), TeamID: utils.ToPtr(uint(10)), ClickCount: 7})
	store.addLink(models.Link{ShortCode: "p1", LongURL: "https://p", UserID: utils.ToPtr(uint(2)), ClickCount: 1})

	ctx := context.Background()
	req := &dto.WorkspaceStatsRequest{TeamID: utils.ToPtr(uint(10)), Days: 3}

	res, err := f.GetWorkspaceStats(ctx, actor(2, models.TierFree), req)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.TotalLinks)
	assert.EqualValues(t, 7, res.TotalClicks)
	assert.Len(t, res.Timeline, 3)
	assert.Equal(t, utils.ToPtr(uint(10)), res.TeamID)

	_, err = f.GetWorkspaceStats(ctx, actor(3, models.TierPro), req)
	assert.True(t, IsTeamAccessDenied(err))

	// System admins see any team.
	_, err = f.GetWorkspaceStats(ctx, actor(3, models.TierAdmin), req)
	assert.NoError(t, err)

	_, err = f.GetWorkspaceStats(ctx, nil, req)
	assert.True(t, IsUnauthenticated(err))
}

func TestWorkspaceStatsFlow_EmptyWorkspace(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	f := newTestWorkspaceStatsFlow(store, newMemTeams(), now)
	store.addLink(models.Link{ShortCode: "o", LongURL: "https://o", UserID: utils.ToPtr(uint(2))})
	store.addClick(models.Click{LinkID: 1, ClickedAt: now, IPAddress: "9.9.9.9"})

	res, err := f.GetWorkspaceStats(context.Background(), actor(1, models.TierFree), &dto.WorkspaceStatsRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalLinks)
	assert.Zero(t, res.SampledClicks)
	assert.Zero(t, res.PendingEnrichment)
	assert.Len(t, res.Timeline, utils.WorkspaceTimelineDays)
	assert.Empty(t, res.Countries)
}
