// Package pipeline is the asynchronous click-event pipeline: stage 1 enriches
// and persists a click, stage 2 fans it out into the day-partitioned
// analytics sink. Both stages run on the shared worker queue, decoupled from
// the redirect path.
package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"time"

	"team-shortlink/internal/cache"
	"team-shortlink/internal/models"
	"team-shortlink/internal/referrer"
	"team-shortlink/internal/sink"

	"github.com/google/uuid"
	"github.com/ua-parser/uap-go/uaparser"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Pipeline struct {
	db     *gorm.DB
	sink   sink.Sink
	queue  *Queue
	cache  *cache.CacheManager
	parser *uaparser.Parser
}

// New wires the pipeline. The cache manager is optional; without it the live
// feed publish is skipped.
func New(db *gorm.DB, s sink.Sink, q *Queue, cm *cache.CacheManager) *Pipeline {
	return &Pipeline{
		db:     db,
		sink:   s,
		queue:  q,
		cache:  cm,
		parser: uaparser.NewFromSaved(),
	}
}

func (p *Pipeline) Queue() *Queue {
	return p.queue
}

// ClickCapture is the payload the redirect dispatcher hands over: everything
// known about the hit at redirect time, nothing more.
type ClickCapture struct {
	LinkID          string
	TeamID          string
	Referrer        string
	IPAddress       string
	LocationCountry string
	LocationRegion  string
	LocationCity    string
	LocationLatLong string
	UserAgentRaw    string
	Query           url.Values
}

// ScheduleCapture enqueues stage 1 for one redirect hit. The event id is
// fixed at schedule time so retries stay idempotent.
func (p *Pipeline) ScheduleCapture(c ClickCapture) {
	p.queue.Enqueue(&captureJob{p: p, eventID: uuid.New().String(), capture: c})
}

type captureJob struct {
	p       *Pipeline
	eventID string
	capture ClickCapture
}

func (j *captureJob) Name() string { return "click_capture" }

func (j *captureJob) Run(ctx context.Context) error {
	return j.p.capture(ctx, j.eventID, j.capture)
}

func (p *Pipeline) capture(ctx context.Context, eventID string, c ClickCapture) error {
	ev := p.enrich(eventID, c)

	// Keyed insert: a retried capture with the same event id is a no-op.
	if err := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ev).Error; err != nil {
		return err
	}

	// Stage 2 only carries the event id to keep the queue light.
	p.queue.Enqueue(&fanoutJob{p: p, eventID: ev.ID})
	p.publish(ev)
	return nil
}

// enrich builds the canonical click record. Unparseable referrers and user
// agents degrade to empty fields, never to errors.
func (p *Pipeline) enrich(eventID string, c ClickCapture) *models.ClickEvent {
	name, medium := referrer.Parse(c.Referrer)

	ev := &models.ClickEvent{
		ID:              eventID,
		ShortLinkID:     c.LinkID,
		TeamID:          c.TeamID,
		Referrer:        c.Referrer,
		ReferrerName:    name,
		ReferrerMedium:  medium,
		IPAddress:       c.IPAddress,
		LocationCountry: c.LocationCountry,
		LocationRegion:  c.LocationRegion,
		LocationCity:    c.LocationCity,
		LocationLatLong: c.LocationLatLong,
		UserAgentRaw:    c.UserAgentRaw,
		CustomCode:      c.Query.Get("c"),
		CreatedAt:       time.Now(),
	}

	if c.UserAgentRaw != "" {
		client := p.parser.Parse(c.UserAgentRaw)
		ev.UserAgentDevice = client.Device.Family
		ev.UserAgentDeviceBrand = client.Device.Brand
		ev.UserAgentDeviceModel = client.Device.Model
		ev.UserAgentOS = client.Os.Family
		ev.UserAgentOSVersion = client.Os.ToVersionString()
		ev.UserAgentBrowser = client.UserAgent.Family
		ev.UserAgentBrowserVersion = client.UserAgent.ToVersionString()
	}
	return ev
}

func (p *Pipeline) publish(ev *models.ClickEvent) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(map[string]interface{}{
		"type":  "click",
		"event": ev,
	})
	if err != nil {
		log.Printf("Failed to marshal click feed message: %v", err)
		return
	}
	p.cache.PublishClick(data)
}
