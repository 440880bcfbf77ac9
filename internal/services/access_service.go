package services

import (
	"errors"
	"time"

	"team-shortlink/internal/cache"
	"team-shortlink/internal/database"
	"team-shortlink/internal/models"

	"gorm.io/gorm"
)

// AccessService is the tenant access gate. A validated (team, member) pair is
// cached for the configured TTL; role or in_use changes inside that window
// are not seen until the entry expires. Denials are never cached.
type AccessService struct {
	db    *gorm.DB
	cache *cache.CacheManager
	ttl   time.Duration
}

func NewAccessService(db *gorm.DB, cm *cache.CacheManager, ttl time.Duration) *AccessService {
	return &AccessService{db: db, cache: cm, ttl: ttl}
}

// Validate returns the team name for an active (team, member) pair, or
// ErrAccessDenied.
func (s *AccessService) Validate(teamID, memberIdentity string) (string, error) {
	key := "access:" + database.MemberID(teamID, memberIdentity)

	var teamName string
	if found, err := s.cache.Get(key, &teamName); found && err == nil {
		return teamName, nil
	}

	var member models.Member
	err := s.db.First(&member, "id = ?", database.MemberID(teamID, memberIdentity)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrAccessDenied
	}
	if err != nil {
		return "", err
	}
	if !member.InUse {
		return "", ErrAccessDenied
	}

	var team models.Team
	err = s.db.First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrAccessDenied
	}
	if err != nil {
		return "", err
	}
	if !team.InUse {
		return "", ErrAccessDenied
	}

	s.cache.Set(key, team.TeamName, s.ttl)
	return team.TeamName, nil
}
