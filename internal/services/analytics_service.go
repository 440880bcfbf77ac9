package services

import (
	"errors"
	"time"

	"team-shortlink/internal/models"

	"gorm.io/gorm"
)

type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// DayBucket groups a link's click events by UTC calendar day.
type DayBucket struct {
	Date  string              `json:"date"`
	Count int                 `json:"count"`
	Data  []models.ClickEvent `json:"data"`
}

// LinkClicks returns a link's click events bucketed per UTC day, oldest day
// first.
func (s *AnalyticsService) LinkClicks(teamID, domain, path string) ([]DayBucket, error) {
	var link models.ShortLink
	err := s.db.First(&link, "id = ?", LinkID(domain, path)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if link.TeamID != teamID {
		return nil, ErrForbidden
	}

	var events []models.ClickEvent
	if err := s.db.Where("short_link_id = ?", link.ID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}

	buckets := make([]DayBucket, 0)
	index := make(map[string]int)
	for _, ev := range events {
		day := ev.CreatedAt.UTC().Format(time.DateOnly)
		i, ok := index[day]
		if !ok {
			i = len(buckets)
			index[day] = i
			buckets = append(buckets, DayBucket{Date: day})
		}
		buckets[i].Count++
		buckets[i].Data = append(buckets[i].Data, ev)
	}
	return buckets, nil
}
