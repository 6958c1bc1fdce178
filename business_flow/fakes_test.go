package businessflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the link, click and user tables.
type memStore struct {
	mu       sync.Mutex
	links    map[uint]*models.Link
	clicks   map[uint]*models.Click
	users    map[uint]*models.User
	nextLink uint
	nextClk  uint

	lookups     int
	failIncr    error
	failClick   error
	failEnrich  error
	enrichments map[uint]models.ClickEnrichment
	takenOnSave map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		links:       map[uint]*models.Link{},
		clicks:      map[uint]*models.Click{},
		users:       map[uint]*models.User{},
		enrichments: map[uint]models.ClickEnrichment{},
		takenOnSave: map[string]bool{},
	}
}

func (s *memStore) addUser(id uint, tier string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id), Tier: tier}
	s.users[id] = u
	return u
}

func (s *memStore) addLink(l models.Link) *models.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLink++
	l.ID = s.nextLink
	s.links[l.ID] = &l
	return &l
}

func (s *memStore) linkByCode(code string) *models.Link {
	for _, l := range s.links {
		if l.ShortCode == code {
			return l
		}
	}
	return nil
}

// memLinks implements repository.LinkRepository and repository.LinkTargetReader.
type memLinks struct{ s *memStore }

var (
	_ repository.LinkRepository   = (*memLinks)(nil)
	_ repository.LinkTargetReader = (*memLinks)(nil)
)

func (r *memLinks) ByID(_ context.Context, id uint) (*models.Link, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.links[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *memLinks) ByShortCode(_ context.Context, code string) (*models.Link, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l := r.s.linkByCode(code); l != nil {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *memLinks) ShortCodeExists(_ context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lookups++
	return r.s.linkByCode(code) != nil, nil
}

func (r *memLinks) Save(_ context.Context, l *models.Link) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.takenOnSave[l.ShortCode] {
		delete(r.s.takenOnSave, l.ShortCode)
		return gorm.ErrDuplicatedKey
	}
	if existing := r.s.linkByCode(l.ShortCode); existing != nil && existing.ID != l.ID {
		return gorm.ErrDuplicatedKey
	}
	if l.ID == 0 {
		r.s.nextLink++
		l.ID = r.s.nextLink
		l.CreatedAt = utils.UTCNow()
	}
	cp := *l
	r.s.links[l.ID] = &cp
	return nil
}

func (r *memLinks) IncrementClickCount(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failIncr != nil {
		return r.s.failIncr
	}
	l, ok := r.s.links[id]
	if !ok {
		return errors.New("link not found")
	}
	l.ClickCount++
	return nil
}

func (r *memLinks) DeleteByShortCode(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.linkByCode(code)
	if l == nil {
		return errors.New("link not found")
	}
	for id, c := range r.s.clicks {
		if c.LinkID == l.ID {
			delete(r.s.clicks, id)
		}
	}
	delete(r.s.links, l.ID)
	return nil
}

func (r *memLinks) TargetByShortCode(_ context.Context, code string) (*models.LinkTarget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.linkByCode(code)
	if l == nil {
		return nil, nil
	}
	t := &models.LinkTarget{
		LinkID:    l.ID,
		ShortCode: l.ShortCode,
		LongURL:   l.LongURL,
		ExpiresAt: l.ExpiresAt,
		UserID:    l.UserID,
		TeamID:    l.TeamID,
	}
	if l.UserID != nil {
		if u, ok := r.s.users[*l.UserID]; ok {
			t.OwnerTier = utils.ToPtr(u.Tier)
		}
	}
	return t, nil
}

func (r *memLinks) filtered(f models.LinkFilter) []*models.Link {
	var out []*models.Link
	for _, l := range r.s.links {
		if f.UserID != nil && (l.UserID == nil || *l.UserID != *f.UserID) {
			continue
		}
		if f.TeamID != nil && (l.TeamID == nil || *l.TeamID != *f.TeamID) {
			continue
		}
		if f.PersonalOnly && l.TeamID != nil {
			continue
		}
		if f.ShortCode != nil && l.ShortCode != *f.ShortCode {
			continue
		}
		if f.CreatedAfter != nil && l.CreatedAt.Before(*f.CreatedAfter) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memLinks) ByFilter(_ context.Context, f models.LinkFilter, _ string, limit, offset int) ([]*models.Link, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.filtered(f)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memLinks) Count(_ context.Context, f models.LinkFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filtered(f))), nil
}

func (r *memLinks) Exists(ctx context.Context, f models.LinkFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}

// memClicks implements repository.ClickRepository.
type memClicks struct{ s *memStore }

var _ repository.ClickRepository = (*memClicks)(nil)

func (r *memClicks) ByID(_ context.Context, id uint) (*models.Click, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.clicks[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memClicks) Save(_ context.Context, c *models.Click) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failClick != nil {
		return r.s.failClick
	}
	r.s.nextClk++
	c.ID = r.s.nextClk
	cp := *c
	r.s.clicks[c.ID] = &cp
	return nil
}

func (r *memClicks) UpdateEnrichment(_ context.Context, id uint, e models.ClickEnrichment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failEnrich != nil {
		return r.s.failEnrich
	}
	r.s.enrichments[id] = e
	if c, ok := r.s.clicks[id]; ok {
		c.Country, c.City, c.Region = e.Country, e.City, e.Region
		c.Latitude, c.Longitude = e.Latitude, e.Longitude
		c.DeviceType = utils.ToPtr(e.DeviceType)
		c.Browser = utils.ToPtr(e.Browser)
		c.OS = utils.ToPtr(e.OS)
		c.RawData = e.RawData
	}
	return nil
}

func (r *memClicks) filtered(f models.ClickFilter) []*models.Click {
	var out []*models.Click
	for _, c := range r.s.clicks {
		if f.LinkID != nil && c.LinkID != *f.LinkID {
			continue
		}
		if f.LinkIDs != nil && !slices.Contains(f.LinkIDs, c.LinkID) {
			continue
		}
		if f.ClickedAfter != nil && c.ClickedAt.Before(*f.ClickedAfter) {
			continue
		}
		if f.OnlyUnenriched && c.DeviceType != nil {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClickedAt.Equal(out[j].ClickedAt) {
			return out[i].ClickedAt.After(out[j].ClickedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *memClicks) ByFilter(_ context.Context, f models.ClickFilter, _ string, limit, offset int) ([]*models.Click, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.filtered(f)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memClicks) Count(_ context.Context, f models.ClickFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filtered(f))), nil
}

func (r *memClicks) Exists(ctx context.Context, f models.ClickFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}

func (s *memStore) addClick(c models.Click) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextClk++
	c.ID = s.nextClk
	s.clicks[c.ID] = &c
}

func (s *memStore) clickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clicks)
}

// memSlugState implements repository.SlugStateRepository.
type memSlugState struct {
	mu     sync.Mutex
	length int
	raised []int
}

func (r *memSlugState) CurrentLength(_ context.Context, initial int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.length == 0 {
		r.length = initial
	}
	return r.length, nil
}

func (r *memSlugState) RaiseLength(_ context.Context, length int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised = append(r.raised, length)
	if length > r.length {
		r.length = length
	}
	return nil
}

// memTeams implements repository.TeamRepository.
type memTeams struct {
	teams   map[uint]*models.Team
	members map[[2]uint]*models.TeamMember
}

var _ repository.TeamRepository = (*memTeams)(nil)

func newMemTeams() *memTeams {
	return &memTeams{teams: map[uint]*models.Team{}, members: map[[2]uint]*models.TeamMember{}}
}

func (r *memTeams) addTeam(id, owner uint) {
	r.teams[id] = &models.Team{ID: id, Name: "team", OwnerID: owner}
	r.members[[2]uint{id, owner}] = &models.TeamMember{TeamID: id, UserID: owner, Role: models.TeamRoleOwner}
}

func (r *memTeams) addMember(teamID, userID uint, role string) {
	r.members[[2]uint{teamID, userID}] = &models.TeamMember{TeamID: teamID, UserID: userID, Role: role}
}

func (r *memTeams) ByID(_ context.Context, id uint) (*models.Team, error) {
	return r.teams[id], nil
}

func (r *memTeams) Save(_ context.Context, t *models.Team) error {
	r.teams[t.ID] = t
	return nil
}

func (r *memTeams) Membership(_ context.Context, teamID, userID uint) (*models.TeamMember, error) {
	return r.members[[2]uint{teamID, userID}], nil
}

func (r *memTeams) SaveMember(_ context.Context, m *models.TeamMember) error {
	r.members[[2]uint{m.TeamID, m.UserID}] = m
	return nil
}

// memAPIKeys implements repository.APIKeyRepository.
type memAPIKeys struct {
	mu    sync.Mutex
	keys  map[uint]*models.APIKey
	users map[uint]*models.User
	next  uint
}

var _ repository.APIKeyRepository = (*memAPIKeys)(nil)

func newMemAPIKeys() *memAPIKeys {
	return &memAPIKeys{keys: map[uint]*models.APIKey{}, users: map[uint]*models.User{}}
}

func (r *memAPIKeys) ByID(_ context.Context, id uint) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[id]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, nil
}

func (r *memAPIKeys) ByPrefix(_ context.Context, prefix string) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.Prefix == prefix {
			cp := *k
			cp.User = r.users[k.UserID]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAPIKeys) ListByUser(_ context.Context, userID uint) ([]*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.APIKey
	for _, k := range r.keys {
		if k.UserID == userID && k.RevokedAt == nil {
			cp := *k
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAPIKeys) Save(_ context.Context, k *models.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k.ID == 0 {
		r.next++
		k.ID = r.next
		k.CreatedAt = utils.UTCNow()
	}
	cp := *k
	r.keys[k.ID] = &cp
	return nil
}

func (r *memAPIKeys) TouchLastUsed(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[id]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

func (r *memAPIKeys) Revoke(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[id]; ok {
		k.RevokedAt = &at
	}
	return nil
}

// fixedSource replays codes in order, then repeats the last one.
type fixedSource struct {
	mu    sync.Mutex
	codes []string
	drawn []string
}

func (f *fixedSource) draw(length int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := strings.Repeat("a", length)
	if len(f.codes) > 0 {
		code = f.codes[0]
		if len(f.codes) > 1 {
			f.codes = f.codes[1:]
		}
	}
	f.drawn = append(f.drawn, code)
	return code
}

type captureDispatcher struct {
	mu   sync.Mutex
	jobs []EnrichmentJob
}

func (d *captureDispatcher) Dispatch(job EnrichmentJob) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return true
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}
