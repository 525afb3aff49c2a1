package inventory

import (
	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PagePublisher is the external collaborator that makes a sales page
// reachable. The engine only drives it; how the page is hosted is not its
// concern.
type PagePublisher interface {
	Publish(event *models.Event) (string, error)
	Unpublish(event *models.Event) error
	Refresh(event *models.Event) error
}

var pagePublisher PagePublisher

func GetPagePublisher() PagePublisher {
	if pagePublisher != nil {
		return pagePublisher
	}
	pagePublisher = &stripePagePublisher{}
	return pagePublisher
}

// NewPagePublisher Replace the publisher with a custom implementation
func NewPagePublisher(p PagePublisher) PagePublisher {
	pagePublisher = p
	return pagePublisher
}

type ValidationError struct {
	Issues []types.ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return e.Issues[0].Message
	}
	return fmt.Sprintf("event failed validation with %d issues", len(e.Issues))
}

// ValidateForPublish checks the publish preconditions: a currency and at
// least one ticket type with at least one release, plus a resolvable
// dependency chain per type. Events delegating to an external ticketing
// URL are pass-through links and exempt from inventory checks.
func ValidateForPublish(event *models.Event) []types.ValidationIssue {
	issues := make([]types.ValidationIssue, 0)
	if event.UsesExternalTicketing() {
		return issues
	}
	if event.Currency == "" {
		issues = append(issues, types.ValidationIssue{
			Field:   "currency",
			Message: "a currency must be selected before publishing",
		})
	}
	hasRelease := false
	for ti := range event.TicketTypes {
		if len(event.TicketTypes[ti].Releases) > 0 {
			hasRelease = true
		}
		issues = append(issues, ValidateReleaseChain(event.TicketTypes[ti].Releases)...)
	}
	if !hasRelease {
		issues = append(issues, types.ValidationIssue{
			Field:   "ticket_types",
			Message: "publishing requires at least one ticket type with at least one release",
		})
	}
	return issues
}

func loadEventForPublish(tx *gorm.DB, id uint) (*models.Event, error) {
	var event models.Event
	err := tx.
		Model(&models.Event{}).
		Where(&models.Event{ID: id}).
		Preload("TicketTypes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("TicketTypes.Releases", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		First(&event).
		Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEventStatus flips status only when the current value matches
// oldStatus, so concurrent transitions cannot clobber each other.
func UpdateEventStatus(id uint, newStatus types.EventStatus, oldStatus types.EventStatus) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Event{}).
			Where("id = ? AND status = ?", id, oldStatus).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: event %d is not in status %s", ErrInvalidTransition, id, oldStatus)
		}
		return nil
	})
}

// markPublished flips to published only when the row still holds the status
// the caller loaded, so two concurrent publishes cannot both get through to
// the page collaborator.
func markPublished(tx *gorm.DB, id uint, prev types.EventStatus) error {
	res := tx.
		Model(&models.Event{}).
		Where("id = ? AND status = ?", id, prev).
		Update("status", types.EVENT_PUBLISHED)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: event %d is not in status %s", ErrInvalidTransition, id, prev)
	}
	return nil
}

func canPublishFrom(status types.EventStatus) bool {
	switch status {
	case types.EVENT_DRAFT, types.EVENT_SCHEDULED, types.EVENT_UNPUBLISHED:
		return true
	}
	return false
}

// PublishEvent validates the event, marks it published, then asks the page
// collaborator for a reachable page. A collaborator failure compensates by
// restoring the prior status: an event must never stay published with no
// page behind it.
func PublishEvent(id uint) error {
	gdb := db.GetDb()
	var event *models.Event
	var prev types.EventStatus
	err := gdb.Transaction(func(tx *gorm.DB) error {
		e, err := loadEventForPublish(tx, id)
		if err != nil {
			return err
		}
		prev = e.Status
		if !canPublishFrom(prev) {
			return fmt.Errorf("%w: cannot publish from status %s", ErrInvalidTransition, prev)
		}
		if issues := ValidateForPublish(e); len(issues) > 0 {
			return &ValidationError{Issues: issues}
		}
		if err := markPublished(tx, e.ID, prev); err != nil {
			return err
		}
		event = e
		return nil
	})
	if err != nil {
		return err
	}

	url, err := GetPagePublisher().Publish(event)
	if err != nil {
		log.Printf("[publish] Sales page publish failed for event %d, reverting to %s: %s\n", id, prev, err.Error())
		if rerr := UpdateEventStatus(id, prev, types.EVENT_PUBLISHED); rerr != nil {
			log.Printf("[publish] Could not revert event %d status: %s\n", id, rerr.Error())
		}
		return fmt.Errorf("publishing sales page failed: %w", err)
	}
	if err := gdb.
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("page_url", url).
		Error; err != nil {
		log.Printf("[publish] Could not store page URL for event %d: %s\n", id, err.Error())
	}

	if event.DateTime != nil && event.DateTime.After(time.Now()) {
		ScheduleCompletion(id, *event.DateTime)
	}

	GetBus().Notify(ChangeNote{EventID: id, Kind: "published"})
	lib.DropAvailability(context.Background(), id)
	go models.EventPublishedProducer(id, map[string]any{
		"id":     id,
		"url":    url,
		"status": string(types.EVENT_PUBLISHED),
	})
	return nil
}

// ScheduleCompletion records and queues the one-time job that completes the
// event at its show date. The record outlives a restart; EnqueueCompletion
// re-queues it on boot.
func ScheduleCompletion(eventId uint, runsAt time.Time) {
	gdb := db.GetDb()
	task := models.JobTask{
		ID:      uuid.New(),
		Name:    fmt.Sprintf("Event_%d_Complete", eventId),
		JobType: "OneTimeJobStartDateTime",
		RunsAt:  runsAt,
		Payload: types.JSONB{"event_id": eventId},
		Topic:   "events-completed",
	}
	if err := gdb.Create(&task).Error; err != nil {
		log.Printf("[publish] Could not record completion job for event %d: %s\n", eventId, err.Error())
	}
	EnqueueCompletion(eventId, task.ID, runsAt)
}

func EnqueueCompletion(eventId uint, jobId uuid.UUID, runsAt time.Time) {
	name := fmt.Sprintf("Event_%d_Complete", eventId)
	if _, err := lib.CreateOneTimeJob(name, runsAt, func(eventId uint, jobId uuid.UUID) {
		if err := CompleteEvent(eventId); err != nil {
			log.Printf("[publish] Scheduled completion of event %d failed: %s\n", eventId, err.Error())
			return
		}
		models.MarkJobDone(jobId)
	}, eventId, jobId); err != nil {
		log.Printf("[publish] Could not schedule completion for event %d: %s\n", eventId, err.Error())
	}
}

// ScheduleWindowRefresh drops the cached availability snapshot the moment a
// scheduled release window opens, so the public read path flips to on sale
// without waiting out the cache TTL.
func ScheduleWindowRefresh(eventId uint, opensAt time.Time) {
	if !opensAt.After(time.Now()) {
		return
	}
	name := fmt.Sprintf("Event_%d_WindowOpen", eventId)
	if _, err := lib.CreateOneTimeJob(name, opensAt, func(eventId uint) {
		lib.DropAvailability(context.Background(), eventId)
		GetBus().Notify(ChangeNote{EventID: eventId, Kind: "window_open"})
	}, eventId); err != nil {
		log.Printf("[publish] Could not schedule window refresh for event %d: %s\n", eventId, err.Error())
	}
}

// UnpublishEvent removes external reachability. Inventory and sales
// history stay intact.
func UnpublishEvent(id uint) error {
	if err := UpdateEventStatus(id, types.EVENT_UNPUBLISHED, types.EVENT_PUBLISHED); err != nil {
		return err
	}
	gdb := db.GetDb()
	event, err := loadEventForPublish(gdb, id)
	if err != nil {
		return err
	}
	if err := GetPagePublisher().Unpublish(event); err != nil {
		log.Printf("[publish] Sales page unpublish failed for event %d, reverting: %s\n", id, err.Error())
		if rerr := UpdateEventStatus(id, types.EVENT_PUBLISHED, types.EVENT_UNPUBLISHED); rerr != nil {
			log.Printf("[publish] Could not revert event %d status: %s\n", id, rerr.Error())
		}
		return fmt.Errorf("unpublishing sales page failed: %w", err)
	}
	GetBus().Notify(ChangeNote{EventID: id, Kind: "unpublished"})
	return nil
}

// CompleteEvent transitions a published or unpublished event once its show
// date has passed.
func CompleteEvent(id uint) error {
	err := UpdateEventStatus(id, types.EVENT_COMPLETED, types.EVENT_PUBLISHED)
	if err != nil {
		err = UpdateEventStatus(id, types.EVENT_COMPLETED, types.EVENT_UNPUBLISHED)
	}
	if err != nil {
		return err
	}
	GetBus().Notify(ChangeNote{EventID: id, Kind: "completed"})
	go models.EventCompletedProducer(id, map[string]any{"id": id})
	return nil
}

// CancelEvent is terminal and reachable from any live status.
func CancelEvent(id uint) error {
	gdb := db.GetDb()
	var prev types.EventStatus
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where(&models.Event{ID: id}).First(&event).Error; err != nil {
			return err
		}
		prev = event.Status
		if prev == types.EVENT_CANCELED {
			return fmt.Errorf("%w: event %d is already canceled", ErrInvalidTransition, id)
		}
		return tx.
			Model(&models.Event{}).
			Where("id = ?", id).
			Update("status", types.EVENT_CANCELED).
			Error
	})
	if err != nil {
		return err
	}
	if prev == types.EVENT_PUBLISHED {
		event, err := loadEventForPublish(gdb, id)
		if err == nil {
			if err := GetPagePublisher().Unpublish(event); err != nil {
				log.Printf("[publish] Could not take down sales page for canceled event %d: %s\n", id, err.Error())
			}
		}
	}
	GetBus().Notify(ChangeNote{EventID: id, Kind: "canceled"})
	return nil
}

// RefreshSalesPage re-syncs an already published page after configuration
// edits. A transient failure here is logged, not surfaced: the page can be
// refreshed again later without data loss.
func RefreshSalesPage(id uint) {
	gdb := db.GetDb()
	event, err := loadEventForPublish(gdb, id)
	if err != nil {
		log.Printf("[publish] Could not load event %d for page refresh: %s\n", id, err.Error())
		return
	}
	if event.Status != types.EVENT_PUBLISHED {
		return
	}
	if err := GetPagePublisher().Refresh(event); err != nil {
		log.Printf("[publish] Sales page refresh failed for event %d: %s\n", id, err.Error())
	}
}
