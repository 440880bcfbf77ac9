package database

import (
	"fmt"
	"log"
	"sync"
	"time"

	"team-shortlink/configs"
	"team-shortlink/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DBManager struct {
	DB *gorm.DB
}

var (
	instance *DBManager
	once     sync.Once
)

func GetDBManager() *DBManager {
	once.Do(func() {
		instance = &DBManager{}
		instance.initialize()
	})
	return instance
}

func (m *DBManager) initialize() {
	db, err := gorm.Open(mysql.Open(configs.AppConfig.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	m.DB = db

	if err := Migrate(m.DB); err != nil {
		log.Fatal("Failed to auto-migrate database:", err)
	}

	// Set up connection pool
	sqlDB, err := m.DB.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Println("Database connection established successfully")
}

// Open connects with an arbitrary dialector and runs migrations. Tests use
// this with an in-memory SQLite database.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Team{},
		&models.Member{},
		&models.ShortLink{},
		&models.LinkIdentifier{},
		&models.ClickEvent{},
	)
}

// CreateTeamWithOwner provisions a team and its primary owner in a single
// transaction. Either both rows exist afterwards, or neither does.
func CreateTeamWithOwner(db *gorm.DB, team *models.Team, memberIdentity, displayName string) (*models.Member, error) {
	owner := &models.Member{
		ID:          MemberID(team.ID, memberIdentity),
		TeamID:      team.ID,
		DisplayName: displayName,
		Role:        "primary_owner",
		InUse:       true,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		team.InUse = true
		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("create primary owner: %w", err)
		}
		if err := tx.Model(team).Update("primary_owner_id", owner.ID).Error; err != nil {
			return fmt.Errorf("link primary owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owner, nil
}

// MemberID builds the composite member key.
func MemberID(teamID, memberIdentity string) string {
	return teamID + "_" + memberIdentity
}
