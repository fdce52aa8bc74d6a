package store

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hoopdraft/hoopdraft/internal/models"
)

var ErrNotFound = errors.New("not found")
var ErrAlreadyDrafted = errors.New("player already drafted")

// Store is the durable gateway for draft, pick, and catalog rows. All draft
// coordination state that must survive a process restart goes through here.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true, // surface duplicate keys as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&models.DraftType{},
		&models.Draft{},
		&models.DraftPick{},
		&models.Team{},
		&models.Player{},
		&models.PlayerTeamStint{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an already-open gorm handle. Used by the catalog service so both
// gateways share one pool.
func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *gorm.DB { return s.db }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
