package scopes

import (
	"boxoffice/src/types"

	"gorm.io/gorm"
)

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithEvent(eventId uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("event_id = ?", eventId)
	}
}

func WithRelease(releaseId uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("release_id = ?", releaseId)
	}
}

func NotRefunded(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", types.SALE_REFUNDED)
}
