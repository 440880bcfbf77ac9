// Package sink is the adapter for the day-partitioned analytics store. One
// partition is one UTC calendar day, materialized as its own table.
package sink

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is the denormalized click projection pushed into a partition. EventID
// is the primary key so re-delivery of the same event is a no-op.
type Row struct {
	EventID                 string    `gorm:"type:varchar(36);primaryKey" json:"event_id"`
	ShortLinkID             string    `gorm:"type:varchar(255);index" json:"short_link_id"`
	TeamID                  string    `gorm:"type:varchar(100)" json:"team_id"`
	Referrer                string    `gorm:"type:text" json:"referrer"`
	ReferrerName            string    `gorm:"type:varchar(100)" json:"referrer_name"`
	ReferrerMedium          string    `gorm:"type:varchar(20)" json:"referrer_medium"`
	IPAddress               string    `gorm:"type:varchar(45)" json:"ip_address"`
	LocationCountry         string    `gorm:"type:varchar(100)" json:"location_country"`
	LocationRegion          string    `gorm:"type:varchar(100)" json:"location_region"`
	LocationCity            string    `gorm:"type:varchar(100)" json:"location_city"`
	LocationLatLong         string    `gorm:"type:varchar(100)" json:"location_lat_long"`
	UserAgentDevice         string    `gorm:"type:varchar(100)" json:"user_agent_device"`
	UserAgentDeviceBrand    string    `gorm:"type:varchar(100)" json:"user_agent_device_brand"`
	UserAgentDeviceModel    string    `gorm:"type:varchar(100)" json:"user_agent_device_model"`
	UserAgentOS             string    `gorm:"type:varchar(100)" json:"user_agent_os"`
	UserAgentOSVersion      string    `gorm:"type:varchar(50)" json:"user_agent_os_version"`
	UserAgentBrowser        string    `gorm:"type:varchar(100)" json:"user_agent_browser"`
	UserAgentBrowserVersion string    `gorm:"type:varchar(50)" json:"user_agent_browser_version"`
	CustomCode              string    `gorm:"type:varchar(100)" json:"custom_code"`
	CreatedAt               time.Time `json:"created_at"`
}

// Sink is the append-only batch-insert API of the analytics store.
type Sink interface {
	HasPartition(ctx context.Context, day time.Time) (bool, error)
	EnsurePartition(ctx context.Context, day time.Time) error
	Insert(ctx context.Context, day time.Time, rows []Row) error
}

// PartitionName returns the table name of a day's partition.
func PartitionName(day time.Time) string {
	return "click_events_" + day.UTC().Format("20060102")
}

// GormSink stores partitions as per-day tables in the relational store.
type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

func (s *GormSink) HasPartition(ctx context.Context, day time.Time) (bool, error) {
	return s.db.WithContext(ctx).Migrator().HasTable(PartitionName(day)), nil
}

// EnsurePartition creates the day's table on first use. Concurrent first
// writers of the same day may race; "already exists" counts as success.
func (s *GormSink) EnsurePartition(ctx context.Context, day time.Time) error {
	name := PartitionName(day)
	db := s.db.WithContext(ctx)
	if db.Migrator().HasTable(name) {
		return nil
	}
	err := db.Table(name).AutoMigrate(&Row{})
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}

// Insert appends rows into the day's partition. Rows whose event id is
// already present are skipped, which makes at-least-once delivery safe.
func (s *GormSink) Insert(ctx context.Context, day time.Time, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Table(PartitionName(day)).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}
