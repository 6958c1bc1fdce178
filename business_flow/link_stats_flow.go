package businessflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const unknownBucket = "Unknown"

// LinkStatsFlow reports on the clicks of a single link.
type LinkStatsFlow interface {
	GetStats(ctx context.Context, actor *Actor, shortCode string) (*dto.LinkStatsResponse, error)
	// ExportClicks returns a file name and an XLSX workbook with one row per click.
	ExportClicks(ctx context.Context, actor *Actor, shortCode string) (string, []byte, error)
}

type LinkStatsFlowImpl struct {
	links  repository.LinkRepository
	clicks repository.ClickRepository
	access *linkAccess
}

func NewLinkStatsFlow(links repository.LinkRepository, clicks repository.ClickRepository, teams repository.TeamRepository) LinkStatsFlow {
	return &LinkStatsFlowImpl{links: links, clicks: clicks, access: &linkAccess{teams: teams}}
}

func (f *LinkStatsFlowImpl) authorize(ctx context.Context, actor *Actor, shortCode string) (*models.Link, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.CanViewStats() {
		return nil, ErrStatsNotAllowed
	}
	return f.access.loadManageable(ctx, f.links, actor, shortCode)
}

func (f *LinkStatsFlowImpl) GetStats(ctx context.Context, actor *Actor, shortCode string) (*dto.LinkStatsResponse, error) {
	link, err := f.authorize(ctx, actor, shortCode)
	if err != nil {
		return nil, err
	}

	clicks, err := f.clicks.ByFilter(ctx, models.ClickFilter{LinkID: &link.ID}, "clicked_at DESC, id DESC", utils.StatsClickWindow, 0)
	if err != nil {
		return nil, NewBusinessError("LINK_STATS_FAILED", "Failed to load clicks", err)
	}

	countries := map[string]int64{}
	referers := map[string]int64{}
	devices := map[string]int64{}
	browsers := map[string]int64{}
	systems := map[string]int64{}
	days := map[string]int64{}

	for _, c := range clicks {
		countries[labelOrUnknown(c.Country)]++
		referers[c.Referer]++
		devices[labelOrUnknown(c.DeviceType)]++
		browsers[labelOrUnknown(c.Browser)]++
		systems[labelOrUnknown(c.OS)]++
		days[utils.DayKey(c.ClickedAt)]++
	}

	res := &dto.LinkStatsResponse{
		ShortCode:     link.ShortCode,
		TotalClicks:   link.ClickCount,
		SampledClicks: len(clicks),
		Countries:     sortByCount(countries),
		Referers:      sortByCount(referers),
		Devices:       sortByCount(devices),
		Browsers:      sortByCount(browsers),
		OS:            sortByCount(systems),
		DailyClicks:   sortByKey(days),
	}
	if len(clicks) > 0 {
		res.LastClickedAt = utils.TimeToUTCPtr(&clicks[0].ClickedAt)
	}
	return res, nil
}

func (f *LinkStatsFlowImpl) ExportClicks(ctx context.Context, actor *Actor, shortCode string) (string, []byte, error) {
	link, err := f.authorize(ctx, actor, shortCode)
	if err != nil {
		return "", nil, err
	}

	clicks, err := f.clicks.ByFilter(ctx, models.ClickFilter{LinkID: &link.ID}, "clicked_at DESC, id DESC", utils.ExportClickLimit, 0)
	if err != nil {
		return "", nil, NewBusinessError("CLICK_EXPORT_FAILED", "Failed to load clicks", err)
	}

	xl := excelize.NewFile()
	defer func() {
		if err := xl.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close workbook")
		}
	}()

	sheet := "Clicks"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare sheet", err)
	}

	header := []any{"ID", "Clicked At", "IP Address", "User Agent", "Referer", "Country", "City", "Region", "Latitude", "Longitude", "Device", "Browser", "OS"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write header", err)
	}

	for ri, c := range clicks {
		row := []any{
			c.ID,
			c.ClickedAt.UTC().Format(time.RFC3339),
			c.IPAddress,
			c.UserAgent,
			c.Referer,
			utils.Deref(c.Country),
			utils.Deref(c.City),
			utils.Deref(c.Region),
			floatCell(c.Latitude),
			floatCell(c.Longitude),
			utils.Deref(c.DeviceType),
			utils.Deref(c.Browser),
			utils.Deref(c.OS),
		}
		cell, err := excelize.CoordinatesToCellName(1, ri+2)
		if err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to compute cell name", err)
		}
		if err := xl.SetSheetRow(sheet, cell, &row); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write workbook", err)
	}

	filename := fmt.Sprintf("clicks_%s_%s.xlsx", link.ShortCode, utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

func labelOrUnknown(v *string) string {
	if v == nil || *v == "" {
		return unknownBucket
	}
	return *v
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// sortByCount orders buckets by count descending, ties by key.
func sortByCount(m map[string]int64) []dto.CountBucket {
	out := toBuckets(m)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func sortByKey(m map[string]int64) []dto.CountBucket {
	out := toBuckets(m)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func toBuckets(m map[string]int64) []dto.CountBucket {
	out := make([]dto.CountBucket, 0, len(m))
	for k, v := range m {
		out = append(out, dto.CountBucket{Key: k, Count: v})
	}
	return out
}
