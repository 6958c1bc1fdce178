package businessflow

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterstitialPath = "/redirect-wait"

func newTestRedirectFlow(store *memStore, dispatcher EnrichmentDispatcher, now time.Time) *RedirectFlowImpl {
	links := &memLinks{s: store}
	recorder := NewClickRecorder(links, &memClicks{s: store})
	f := NewRedirectFlow(links, recorder, dispatcher, testInterstitialPath).(*RedirectFlowImpl)
	f.now = func() time.Time { return now }
	return f
}

func TestRedirectFlow_TierRouting(t *testing.T) {
	store := newMemStore()
	store.addUser(1, models.TierFree)
	store.addUser(2, models.TierStandard)
	store.addUser(3, models.TierPro)
	store.addUser(4, models.TierEnterprise)
	store.addUser(5, models.TierAdmin)

	tests := []struct {
		name   string
		userID *uint
		teamID *uint
		want   RedirectOutcome
	}{
		{"anonymous", nil, nil, RedirectInterstitial},
		{"free", utils.ToPtr(uint(1)), nil, RedirectInterstitial},
		{"standard", utils.ToPtr(uint(2)), nil, RedirectDirect},
		{"pro", utils.ToPtr(uint(3)), nil, RedirectDirect},
		{"enterprise", utils.ToPtr(uint(4)), nil, RedirectDirect},
		{"admin", utils.ToPtr(uint(5)), nil, RedirectDirect},
		{"free owner on team", utils.ToPtr(uint(1)), utils.ToPtr(uint(9)), RedirectDirect},
		{"anonymous team", nil, utils.ToPtr(uint(9)), RedirectDirect},
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newTestRedirectFlow(store, nil, now)
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := "c" + string(rune('A'+i))
			store.addLink(models.Link{ShortCode: code, LongURL: "https://example.com/x?y=1", UserID: tt.userID, TeamID: tt.teamID})

			d, err := f.Resolve(context.Background(), code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Outcome)
			assert.Equal(t, "https://example.com/x?y=1", d.Destination)
			if tt.want == RedirectInterstitial {
				assert.Equal(t, testInterstitialPath+"?target="+url.QueryEscape(d.Destination), d.Location)
			} else {
				assert.Equal(t, d.Destination, d.Location)
			}
		})
	}
}

func TestRedirectFlow_ExpiryBoundary(t *testing.T) {
	store := newMemStore()
	store.addUser(1, models.TierPro)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newTestRedirectFlow(store, nil, now)

	store.addLink(models.Link{ShortCode: "past", LongURL: "https://a.example", UserID: utils.ToPtr(uint(1)), ExpiresAt: utils.ToPtr(now.Add(-time.Second))})
	store.addLink(models.Link{ShortCode: "future", LongURL: "https://b.example", UserID: utils.ToPtr(uint(1)), ExpiresAt: utils.ToPtr(now.Add(time.Hour))})
	store.addLink(models.Link{ShortCode: "exact", LongURL: "https://c.example", UserID: utils.ToPtr(uint(1)), ExpiresAt: utils.ToPtr(now)})

	d, err := f.Resolve(context.Background(), "past")
	require.NoError(t, err)
	assert.Equal(t, RedirectExpired, d.Outcome)
	assert.False(t, d.IsRedirect())

	d, err = f.Resolve(context.Background(), "future")
	require.NoError(t, err)
	assert.Equal(t, RedirectDirect, d.Outcome)

	// Expiry is strict: a link expiring exactly now still resolves.
	d, err = f.Resolve(context.Background(), "exact")
	require.NoError(t, err)
	assert.Equal(t, RedirectDirect, d.Outcome)
}

func TestRedirectFlow_NormalizesSchemelessDestination(t *testing.T) {
	store := newMemStore()
	store.addUser(1, models.TierPro)
	store.addLink(models.Link{ShortCode: "bare", LongURL: "example.com/path", UserID: utils.ToPtr(uint(1))})
	store.addLink(models.Link{ShortCode: "plain", LongURL: "http://example.com", UserID: utils.ToPtr(uint(1))})

	f := newTestRedirectFlow(store, nil, utils.UTCNow())

	d, err := f.Resolve(context.Background(), "bare")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/path", d.Location)

	d, err = f.Resolve(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", d.Location)
}

func TestRedirectFlow_NotFoundHasNoSideEffects(t *testing.T) {
	store := newMemStore()
	dispatcher := &captureDispatcher{}
	f := newTestRedirectFlow(store, dispatcher, utils.UTCNow())

	d, err := f.Visit(context.Background(), "missing", VisitorMetadata{IPAddress: "8.8.8.8"})
	require.NoError(t, err)
	assert.Equal(t, RedirectNotFound, d.Outcome)
	assert.Equal(t, 0, store.clickCount())
	assert.Equal(t, 0, dispatcher.count())
}

func TestRedirectFlow_ExpiredVisitRecordsNothing(t *testing.T) {
	store := newMemStore()
	now := utils.UTCNow()
	store.addLink(models.Link{ShortCode: "old", LongURL: "https://example.com", ExpiresAt: utils.ToPtr(now.Add(-time.Minute))})
	dispatcher := &captureDispatcher{}
	f := newTestRedirectFlow(store, dispatcher, now)

	d, err := f.Visit(context.Background(), "old", VisitorMetadata{})
	require.NoError(t, err)
	assert.Equal(t, RedirectExpired, d.Outcome)
	assert.Equal(t, 0, store.clickCount())
	assert.Equal(t, 0, dispatcher.count())
}

func TestRedirectFlow_VisitRecordsClickAndDispatches(t *testing.T) {
	store := newMemStore()
	link := store.addLink(models.Link{ShortCode: "abc", LongURL: "https://example.com"})
	dispatcher := &captureDispatcher{}
	f := newTestRedirectFlow(store, dispatcher, utils.UTCNow())

	d, err := f.Visit(context.Background(), "abc", VisitorMetadata{IPAddress: "8.8.8.8", UserAgent: "curl/8.0"})
	require.NoError(t, err)
	assert.Equal(t, RedirectInterstitial, d.Outcome)
	assert.NotZero(t, d.ClickID)

	got, _ := (&memLinks{s: store}).ByID(context.Background(), link.ID)
	assert.EqualValues(t, 1, got.ClickCount)

	click, _ := (&memClicks{s: store}).ByID(context.Background(), d.ClickID)
	require.NotNil(t, click)
	assert.Equal(t, "8.8.8.8", click.IPAddress)
	assert.Equal(t, "curl/8.0", click.UserAgent)
	assert.Equal(t, "Direct", click.Referer)
	assert.Nil(t, click.Country)

	require.Equal(t, 1, dispatcher.count())
	assert.Equal(t, EnrichmentJob{ClickID: d.ClickID, IPAddress: "8.8.8.8", UserAgent: "curl/8.0"}, dispatcher.jobs[0])
}

func TestRedirectFlow_RecordingFailureStillRedirects(t *testing.T) {
	store := newMemStore()
	store.addLink(models.Link{ShortCode: "abc", LongURL: "https://example.com"})
	store.failClick = errors.New("disk full")
	dispatcher := &captureDispatcher{}
	f := newTestRedirectFlow(store, dispatcher, utils.UTCNow())

	d, err := f.Visit(context.Background(), "abc", VisitorMetadata{})
	require.NoError(t, err)
	assert.True(t, d.IsRedirect())
	assert.Zero(t, d.ClickID)
	assert.Equal(t, 0, dispatcher.count())
}

func TestRedirectFlow_ConcurrentVisitsAreAllCounted(t *testing.T) {
	store := newMemStore()
	link := store.addLink(models.Link{ShortCode: "hot", LongURL: "https://example.com"})
	dispatcher := &captureDispatcher{}
	f := newTestRedirectFlow(store, dispatcher, utils.UTCNow())

	const visits = 100
	var wg sync.WaitGroup
	for i := 0; i < visits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := f.Visit(context.Background(), "hot", VisitorMetadata{IPAddress: "8.8.4.4"})
			assert.NoError(t, err)
			assert.True(t, d.IsRedirect())
		}()
	}
	wg.Wait()

	got, _ := (&memLinks{s: store}).ByID(context.Background(), link.ID)
	assert.EqualValues(t, visits, got.ClickCount)
	assert.Equal(t, visits, store.clickCount())
	assert.Equal(t, visits, dispatcher.count())
}

func TestRequiresInterstitial_UnknownOwnerTier(t *testing.T) {
	// An owner row that could not be joined is treated like an anonymous link.
	assert.True(t, RequiresInterstitial(&models.LinkTarget{UserID: utils.ToPtr(uint(7))}))
}
