package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
)

// WorkspaceStatsFlow reports on every link of a personal or team workspace.
type WorkspaceStatsFlow interface {
	GetWorkspaceStats(ctx context.Context, actor *Actor, req *dto.WorkspaceStatsRequest) (*dto.WorkspaceStatsResponse, error)
}

type WorkspaceStatsFlowImpl struct {
	links  repository.LinkRepository
	clicks repository.ClickRepository
	access *linkAccess
	now    func() time.Time
}

func NewWorkspaceStatsFlow(links repository.LinkRepository, clicks repository.ClickRepository, teams repository.TeamRepository) WorkspaceStatsFlow {
	return &WorkspaceStatsFlowImpl{
		links:  links,
		clicks: clicks,
		access: &linkAccess{teams: teams},
		now:    utils.UTCNow,
	}
}

func (f *WorkspaceStatsFlowImpl) GetWorkspaceStats(ctx context.Context, actor *Actor, req *dto.WorkspaceStatsRequest) (*dto.WorkspaceStatsResponse, error) {
	filter, err := f.access.workspaceFilter(ctx, actor, req.TeamID)
	if err != nil {
		return nil, err
	}

	days := req.Days
	if days <= 0 {
		days = utils.WorkspaceTimelineDays
	}
	start := utils.StartOfDay(f.now()).AddDate(0, 0, -(days - 1))

	links, err := f.links.ByFilter(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("WORKSPACE_STATS_FAILED", "Failed to load workspace links", err)
	}

	res := &dto.WorkspaceStatsResponse{TeamID: req.TeamID, TotalLinks: int64(len(links))}
	ids := make([]uint, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
		res.TotalClicks += l.ClickCount
	}

	created := filter
	created.CreatedAfter = &start
	if res.NewLinks, err = f.links.Count(ctx, created); err != nil {
		return nil, NewBusinessError("WORKSPACE_STATS_FAILED", "Failed to count new links", err)
	}

	timeline := make(map[string]int64, days)
	for d := 0; d < days; d++ {
		timeline[utils.DayKey(start.AddDate(0, 0, d))] = 0
	}
	recent, err := f.clicks.ByFilter(ctx, models.ClickFilter{LinkIDs: ids, ClickedAfter: &start}, "clicked_at ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("WORKSPACE_STATS_FAILED", "Failed to load click timeline", err)
	}
	for _, c := range recent {
		key := utils.DayKey(c.ClickedAt)
		if _, ok := timeline[key]; ok {
			timeline[key]++
		}
	}
	res.Timeline = sortByKey(timeline)

	sample, err := f.clicks.ByFilter(ctx, models.ClickFilter{LinkIDs: ids}, "clicked_at DESC, id DESC", utils.StatsClickWindow, 0)
	if err != nil {
		return nil, NewBusinessError("WORKSPACE_STATS_FAILED", "Failed to load clicks", err)
	}
	res.SampledClicks = len(sample)

	visitors := map[string]struct{}{}
	countries := map[string]int64{}
	cities := map[string]int64{}
	referers := map[string]int64{}
	devices := map[string]int64{}
	browsers := map[string]int64{}
	systems := map[string]int64{}
	for _, c := range sample {
		visitors[c.IPAddress] = struct{}{}
		countries[labelOrUnknown(c.Country)]++
		cities[labelOrUnknown(c.City)]++
		referers[c.Referer]++
		devices[labelOrUnknown(c.DeviceType)]++
		browsers[labelOrUnknown(c.Browser)]++
		systems[labelOrUnknown(c.OS)]++
	}
	res.UniqueVisitors = len(visitors)
	res.Countries = topBuckets(countries)
	res.Cities = topBuckets(cities)
	res.Referers = topBuckets(referers)
	res.Devices = topBuckets(devices)
	res.Browsers = topBuckets(browsers)
	res.OS = topBuckets(systems)

	if res.PendingEnrichment, err = f.clicks.Count(ctx, models.ClickFilter{LinkIDs: ids, OnlyUnenriched: true}); err != nil {
		return nil, NewBusinessError("WORKSPACE_STATS_FAILED", "Failed to count pending enrichment", err)
	}

	return res, nil
}

func topBuckets(m map[string]int64) []dto.CountBucket {
	out := sortByCount(m)
	if len(out) > utils.WorkspaceTopBuckets {
		out = out[:utils.WorkspaceTopBuckets]
	}
	return out
}
