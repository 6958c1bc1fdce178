package businessflow

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

// maxCreateAttempts bounds regeneration when a generated code loses an
// insert race to a concurrent creator.
const maxCreateAttempts = 3

// LinkFlow is the authenticated link management surface.
type LinkFlow interface {
	CreateLink(ctx context.Context, actor *Actor, req *dto.CreateLinkRequest) (*dto.LinkResponse, error)
	ListLinks(ctx context.Context, actor *Actor, req *dto.ListLinksRequest) (*dto.ListLinksResponse, error)
	DeleteLink(ctx context.Context, actor *Actor, shortCode string) error
	// QRCode renders the short URL of a link the actor manages as a PNG.
	QRCode(ctx context.Context, actor *Actor, shortCode string, req *dto.QRCodeRequest) ([]byte, error)
}

// LinkCacheInvalidator drops cached redirect lookups.
type LinkCacheInvalidator interface {
	Invalidate(ctx context.Context, code string) error
}

type LinkFlowImpl struct {
	links   repository.LinkRepository
	access  *linkAccess
	slugs   SlugGenerator
	cache   LinkCacheInvalidator
	baseURL string
	now     func() time.Time
}

func NewLinkFlow(
	links repository.LinkRepository,
	teams repository.TeamRepository,
	slugs SlugGenerator,
	cache LinkCacheInvalidator,
	baseURL string,
) LinkFlow {
	return &LinkFlowImpl{
		links:   links,
		access:  &linkAccess{teams: teams},
		slugs:   slugs,
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     utils.UTCNow,
	}
}

func (f *LinkFlowImpl) CreateLink(ctx context.Context, actor *Actor, req *dto.CreateLinkRequest) (*dto.LinkResponse, error) {
	destination, err := ValidateDestination(req.LongURL)
	if err != nil {
		return nil, err
	}

	expiresAt := utils.TimeToUTCPtr(req.ExpiresAt)
	if expiresAt != nil && !expiresAt.After(f.now()) {
		return nil, ErrExpiryInPast
	}

	if req.TeamID != nil {
		if err := f.access.requireTeamManager(ctx, actor, *req.TeamID); err != nil {
			return nil, err
		}
	}

	custom := ""
	if req.CustomSlug != nil {
		custom = strings.TrimSpace(*req.CustomSlug)
	}
	if custom != "" {
		if req.TeamID == nil && !actor.CanUseCustomSlug() {
			return nil, ErrCustomSlugNotAllowed
		}
		if err := f.slugs.ValidateCustom(ctx, custom); err != nil {
			return nil, err
		}
	}

	link := &models.Link{
		LongURL:   destination,
		Title:     req.Title,
		TeamID:    req.TeamID,
		ExpiresAt: expiresAt,
	}
	if actor != nil {
		link.UserID = utils.ToPtr(actor.UserID)
	}

	for attempt := 1; ; attempt++ {
		code := custom
		if code == "" {
			code, err = f.slugs.Generate(ctx)
			if err != nil {
				return nil, err
			}
		}

		link.ID = 0
		link.ShortCode = code
		err = f.links.Save(ctx, link)
		if err == nil {
			break
		}
		if !repository.IsDuplicateKey(err) {
			return nil, NewBusinessError("LINK_CREATE_FAILED", "Failed to create link", err)
		}
		// Another creator won the insert race for this code.
		if custom != "" || attempt >= maxCreateAttempts {
			return nil, ErrDuplicateSlug
		}
		logrus.WithField("short_code", code).Info("generated short code taken on insert, regenerating")
	}

	logrus.WithFields(logrus.Fields{
		"short_code": link.ShortCode,
		"link_id":    link.ID,
		"team_id":    utils.Deref(link.TeamID),
		"custom":     custom != "",
	}).Info("link created")

	res := f.toResponse(link)
	return &res, nil
}

func (f *LinkFlowImpl) ListLinks(ctx context.Context, actor *Actor, req *dto.ListLinksRequest) (*dto.ListLinksResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	filter, err := f.access.workspaceFilter(ctx, actor, req.TeamID)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = utils.DefaultListLimit
	}

	total, err := f.links.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LINK_LIST_FAILED", "Failed to count links", err)
	}
	rows, err := f.links.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("LINK_LIST_FAILED", "Failed to list links", err)
	}

	res := &dto.ListLinksResponse{Links: make([]dto.LinkResponse, 0, len(rows)), Total: total}
	for _, row := range rows {
		res.Links = append(res.Links, f.toResponse(row))
	}
	return res, nil
}

func (f *LinkFlowImpl) DeleteLink(ctx context.Context, actor *Actor, shortCode string) error {
	link, err := f.access.loadManageable(ctx, f.links, actor, shortCode)
	if err != nil {
		return err
	}

	if err := f.links.DeleteByShortCode(ctx, link.ShortCode); err != nil {
		return NewBusinessError("LINK_DELETE_FAILED", "Failed to delete link", err)
	}
	if f.cache != nil {
		if err := f.cache.Invalidate(ctx, link.ShortCode); err != nil {
			logrus.WithError(err).WithField("short_code", link.ShortCode).Warn("failed to invalidate cached link")
		}
	}

	logrus.WithFields(logrus.Fields{"short_code": link.ShortCode, "user_id": actor.UserID}).Info("link deleted")
	return nil
}

func (f *LinkFlowImpl) QRCode(ctx context.Context, actor *Actor, shortCode string, req *dto.QRCodeRequest) ([]byte, error) {
	link, err := f.access.loadManageable(ctx, f.links, actor, shortCode)
	if err != nil {
		return nil, err
	}

	size := req.Size
	if size == 0 {
		size = utils.DefaultQRCodeSize
	}
	level, ok := qrLevels[req.Level]
	if !ok {
		level = qrcode.Medium
	}

	png, err := qrcode.Encode(f.shortURL(link.ShortCode), level, size)
	if err != nil {
		return nil, NewBusinessError("QR_CODE_FAILED", "Failed to generate QR code", err)
	}
	return png, nil
}

var qrLevels = map[string]qrcode.RecoveryLevel{
	"low":     qrcode.Low,
	"medium":  qrcode.Medium,
	"high":    qrcode.High,
	"highest": qrcode.Highest,
}

func (f *LinkFlowImpl) shortURL(code string) string {
	return f.baseURL + "/" + code
}

func (f *LinkFlowImpl) toResponse(link *models.Link) dto.LinkResponse {
	return dto.LinkResponse{
		ID:         link.ID,
		ShortCode:  link.ShortCode,
		ShortURL:   f.shortURL(link.ShortCode),
		LongURL:    link.LongURL,
		Title:      link.Title,
		TeamID:     link.TeamID,
		ExpiresAt:  link.ExpiresAt,
		ClickCount: link.ClickCount,
		CreatedAt:  link.CreatedAt,
	}
}

// linkAccess holds the authorization rules shared by the management flows.
type linkAccess struct {
	teams repository.TeamRepository
}

func (a *linkAccess) requireTeamManager(ctx context.Context, actor *Actor, teamID uint) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	team, err := a.teams.ByID(ctx, teamID)
	if err != nil {
		return NewBusinessError("TEAM_LOOKUP_FAILED", "Failed to load team", err)
	}
	if team == nil {
		return ErrTeamNotFound
	}
	if actor.IsAdmin() {
		return nil
	}
	member, err := a.teams.Membership(ctx, teamID, actor.UserID)
	if err != nil {
		return NewBusinessError("TEAM_LOOKUP_FAILED", "Failed to check team membership", err)
	}
	if !member.CanManageLinks() {
		return ErrTeamAccessDenied
	}
	return nil
}

// workspaceFilter scopes link queries to a team the actor belongs to, or to
// the actor's personal links when teamID is nil.
func (a *linkAccess) workspaceFilter(ctx context.Context, actor *Actor, teamID *uint) (models.LinkFilter, error) {
	if actor == nil {
		return models.LinkFilter{}, ErrUnauthenticated
	}
	if teamID == nil {
		return models.LinkFilter{UserID: utils.ToPtr(actor.UserID), PersonalOnly: true}, nil
	}
	member, err := a.teams.Membership(ctx, *teamID, actor.UserID)
	if err != nil {
		return models.LinkFilter{}, NewBusinessError("TEAM_LOOKUP_FAILED", "Failed to check team membership", err)
	}
	if member == nil && !actor.IsAdmin() {
		return models.LinkFilter{}, ErrTeamAccessDenied
	}
	return models.LinkFilter{TeamID: teamID}, nil
}

// canManage allows the owner, a system admin, or an OWNER/ADMIN of the link's team.
func (a *linkAccess) canManage(ctx context.Context, actor *Actor, link *models.Link) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.IsAdmin() {
		return nil
	}
	if link.UserID != nil && *link.UserID == actor.UserID {
		return nil
	}
	if link.TeamID != nil {
		member, err := a.teams.Membership(ctx, *link.TeamID, actor.UserID)
		if err != nil {
			return NewBusinessError("TEAM_LOOKUP_FAILED", "Failed to check team membership", err)
		}
		if member.CanManageLinks() {
			return nil
		}
	}
	return ErrLinkAccessDenied
}

type linkByCode interface {
	ByShortCode(ctx context.Context, code string) (*models.Link, error)
}

func (a *linkAccess) loadManageable(ctx context.Context, links linkByCode, actor *Actor, shortCode string) (*models.Link, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	link, err := links.ByShortCode(ctx, shortCode)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if err := a.canManage(ctx, actor, link); err != nil {
		return nil, err
	}
	return link, nil
}
