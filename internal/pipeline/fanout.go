package pipeline

import (
	"context"
	"fmt"

	"team-shortlink/internal/models"
	"team-shortlink/internal/sink"
)

type fanoutJob struct {
	p       *Pipeline
	eventID string
}

func (j *fanoutJob) Name() string { return "click_fanout" }

func (j *fanoutJob) Run(ctx context.Context) error {
	return j.p.fanOut(ctx, j.eventID)
}

// fanOut projects a persisted click event into its day partition. Partition
// creation and the keyed insert are both idempotent, so the queue may run
// this any number of times for the same event id.
func (p *Pipeline) fanOut(ctx context.Context, eventID string) error {
	var ev models.ClickEvent
	if err := p.db.WithContext(ctx).First(&ev, "id = ?", eventID).Error; err != nil {
		return fmt.Errorf("load click event %s: %w", eventID, err)
	}

	day := ev.CreatedAt.UTC()
	if err := p.sink.EnsurePartition(ctx, day); err != nil {
		return fmt.Errorf("ensure partition %s: %w", sink.PartitionName(day), err)
	}

	if err := p.sink.Insert(ctx, day, []sink.Row{rowFromEvent(&ev)}); err != nil {
		return fmt.Errorf("insert into partition %s: %w", sink.PartitionName(day), err)
	}
	return nil
}

func rowFromEvent(ev *models.ClickEvent) sink.Row {
	return sink.Row{
		EventID:                 ev.ID,
		ShortLinkID:             ev.ShortLinkID,
		TeamID:                  ev.TeamID,
		Referrer:                ev.Referrer,
		ReferrerName:            ev.ReferrerName,
		ReferrerMedium:          ev.ReferrerMedium,
		IPAddress:               ev.IPAddress,
		LocationCountry:         ev.LocationCountry,
		LocationRegion:          ev.LocationRegion,
		LocationCity:            ev.LocationCity,
		LocationLatLong:         ev.LocationLatLong,
		UserAgentDevice:         ev.UserAgentDevice,
		UserAgentDeviceBrand:    ev.UserAgentDeviceBrand,
		UserAgentDeviceModel:    ev.UserAgentDeviceModel,
		UserAgentOS:             ev.UserAgentOS,
		UserAgentOSVersion:      ev.UserAgentOSVersion,
		UserAgentBrowser:        ev.UserAgentBrowser,
		UserAgentBrowserVersion: ev.UserAgentBrowserVersion,
		CustomCode:              ev.CustomCode,
		CreatedAt:               ev.CreatedAt,
	}
}
