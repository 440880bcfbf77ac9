package models

import "time"

// Teams. ID is the team domain and is immutable once assigned.
type Team struct {
	ID             string `gorm:"type:varchar(100);primaryKey" json:"id"`
	TeamName       string `gorm:"type:varchar(255);not null" json:"team_name"`
	BillingPlan    string `gorm:"type:varchar(20);not null;default:'trial'" json:"billing_plan"` // trial, free, silver, gold, platinum
	PrimaryOwnerID string `gorm:"type:varchar(255)" json:"primary_owner_id"`
	InUse          bool   `gorm:"not null;default:true" json:"in_use"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Team) TableName() string {
	return "teams"
}

// Members. ID = team id + "_" + member identity, unique within a team.
type Member struct {
	ID          string `gorm:"type:varchar(255);primaryKey" json:"id"`
	TeamID      string `gorm:"type:varchar(100);index;not null" json:"team_id"`
	DisplayName string `gorm:"type:varchar(255);not null" json:"display_name"`
	Role        string `gorm:"type:varchar(20);not null" json:"role"` // primary_owner, admin, normal
	InUse       bool   `gorm:"not null;default:true" json:"in_use"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Member) TableName() string {
	return "members"
}

// TagSet keeps set semantics over an ordered JSON column: Add never
// introduces duplicates and Remove of an absent tag is a no-op.
type TagSet []string

func (t TagSet) Has(tag string) bool {
	for _, existing := range t {
		if existing == tag {
			return true
		}
	}
	return false
}

func (t TagSet) Add(tag string) TagSet {
	if t.Has(tag) {
		return t
	}
	return append(t, tag)
}

func (t TagSet) Remove(tag string) TagSet {
	out := make(TagSet, 0, len(t))
	for _, existing := range t {
		if existing != tag {
			out = append(out, existing)
		}
	}
	return out
}

// Short Links. ID = domain + "_" + path, globally unique.
type ShortLink struct {
	ID          string `gorm:"type:varchar(255);primaryKey" json:"id"`
	Domain      string `gorm:"type:varchar(255);not null" json:"domain"`
	Path        string `gorm:"type:varchar(100);not null" json:"path"`
	LongURL     string `gorm:"type:text;not null" json:"long_url"`
	ShortURL    string `gorm:"type:varchar(255);not null" json:"short_url"`
	TeamID      string `gorm:"type:varchar(100);index:idx_links_team_created;not null" json:"team_id"`
	CreatedByID string `gorm:"type:varchar(255)" json:"created_by_id"`
	UpdatedByID string `gorm:"type:varchar(255)" json:"updated_by_id"`
	Title       string `gorm:"type:varchar(500)" json:"title"`
	SiteName    string `gorm:"type:varchar(255)" json:"site_name"`
	Description string `gorm:"type:text" json:"description"`
	Image       string `gorm:"type:varchar(500)" json:"image"`
	Memo        string `gorm:"type:text" json:"memo"`
	Tags        TagSet `gorm:"serializer:json" json:"tags"`
	CreatedAt   time.Time `gorm:"index:idx_links_team_created" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ShortLink) TableName() string {
	return "short_links"
}

// Link Identifiers. The auto-incremented primary key is the allocator's
// atomic counter; rows are never read again after allocation except for audit.
type LinkIdentifier struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	LongURL   string `gorm:"type:text"`
	CreatedAt time.Time
}

func (LinkIdentifier) TableName() string {
	return "link_identifiers"
}

// Click Events. Append-only; never mutated after creation.
type ClickEvent struct {
	ID                      string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ShortLinkID             string    `gorm:"type:varchar(255);index:idx_clicks_link_created;not null" json:"short_link_id"`
	TeamID                  string    `gorm:"type:varchar(100);index" json:"team_id"`
	Referrer                string    `gorm:"type:text" json:"referrer"`
	ReferrerName            string    `gorm:"type:varchar(100)" json:"referrer_name"`
	ReferrerMedium          string    `gorm:"type:varchar(20)" json:"referrer_medium"`
	IPAddress               string    `gorm:"type:varchar(45)" json:"ip_address"`
	LocationCountry         string    `gorm:"type:varchar(100)" json:"location_country"`
	LocationRegion          string    `gorm:"type:varchar(100)" json:"location_region"`
	LocationCity            string    `gorm:"type:varchar(100)" json:"location_city"`
	LocationLatLong         string    `gorm:"type:varchar(100)" json:"location_lat_long"`
	UserAgentRaw            string    `gorm:"type:text" json:"user_agent_raw"`
	UserAgentDevice         string    `gorm:"type:varchar(100)" json:"user_agent_device"`
	UserAgentDeviceBrand    string    `gorm:"type:varchar(100)" json:"user_agent_device_brand"`
	UserAgentDeviceModel    string    `gorm:"type:varchar(100)" json:"user_agent_device_model"`
	UserAgentOS             string    `gorm:"type:varchar(100)" json:"user_agent_os"`
	UserAgentOSVersion      string    `gorm:"type:varchar(50)" json:"user_agent_os_version"`
	UserAgentBrowser        string    `gorm:"type:varchar(100)" json:"user_agent_browser"`
	UserAgentBrowserVersion string    `gorm:"type:varchar(50)" json:"user_agent_browser_version"`
	CustomCode              string    `gorm:"type:varchar(100)" json:"custom_code"`
	CreatedAt               time.Time `gorm:"index:idx_clicks_link_created" json:"created_at"`
}

func (ClickEvent) TableName() string {
	return "click_events"
}
