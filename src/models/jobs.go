package models

import (
	"boxoffice/src/db"
	"boxoffice/src/types"
	"log"
	"time"

	"github.com/google/uuid"
)

// JobTask is the durable record behind a scheduled one-time job. Pending
// jobs survive a restart and are re-queued on boot.
type JobTask struct {
	ID      uuid.UUID   `gorm:"primarykey;type:uuid" json:"id"`
	Name    string      `json:"name"`
	JobType string      `json:"-"`
	RunsAt  time.Time   `json:"runs_at"`
	Payload types.JSONB `gorm:"type:jsonb" json:"-"`
	Status  string      `gorm:"default:'pending'" json:"status"`
	Topic   string      `json:"-"`

	types.Timestamps
}

func MarkJobDone(id uuid.UUID) {
	gdb := db.GetDb()
	if err := gdb.
		Model(&JobTask{}).
		Where("id = ?", id).
		Update("status", "done").
		Error; err != nil {
		log.Printf("Could not mark job %s as done: %s\n", id.String(), err.Error())
	}
}
