package waitlist

import (
	"context"

	"github.com/akeren/cv99x-waitlist/internal/models"
	apperrors "github.com/akeren/cv99x-waitlist/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WaitlistRepository interface {
	// UpsertEntry inserts the entry or overwrites the row sharing its email, and returns the stored row.
	UpsertEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (wr *waitlistRepository) UpsertEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	var stored models.WaitlistEntry

	err := wr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns(models.UpsertColumns),
		})
		if err := upsert.Create(entry).Error; err != nil {
			return err
		}

		// The insert path's returned id is unreliable on conflict, so read the row back by its key.
		return tx.Where("email = ?", entry.Email).Take(&stored).Error
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("unable to upsert waitlist entry", err)
	}

	return &stored, nil
}

func (wr *waitlistRepository) Ping(ctx context.Context) error {
	sqlDB, err := wr.db.DB()
	if err != nil {
		return apperrors.NewDatabaseError("unable to get database handle", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.NewDatabaseError("database ping failed", err)
	}

	return nil
}
