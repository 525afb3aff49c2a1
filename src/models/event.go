package models

import (
	"boxoffice/src/lib"
	"boxoffice/src/types"
	"log"
	"time"
)

type Event struct {
	ID                 uint              `gorm:"primarykey" json:"id"`
	Title              string            `json:"title,omitempty"`
	Name               string            `json:"name,omitempty"`
	Slug               string            `json:"slug,omitempty"`
	Description        *string           `json:"description,omitempty"`
	ImportantInfo      *string           `json:"important_info,omitempty"`
	Currency           string            `json:"currency,omitempty"`
	Status             types.EventStatus `gorm:"default:'draft'" json:"status,omitempty"`
	ShowID             uint              `json:"show_id,omitempty"`
	DateTime           *time.Time        `json:"date_time,omitempty"`
	ExternalTicketsURL *string           `json:"external_tickets_url,omitempty"`
	PageURL            *string           `json:"page_url,omitempty"`

	TicketTypes []TicketType `gorm:"foreignKey:event_id" json:"ticket_types,omitempty"`

	types.Timestamps
}

// UsesExternalTicketing reports whether the event delegates sales off
// platform. Such events are pass-through links, not inventory-backed.
func (e *Event) UsesExternalTicketing() bool {
	return e.ExternalTicketsURL != nil && *e.ExternalTicketsURL != ""
}

func EventPublishedProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("events_published_producer", "events-published", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}

func EventCompletedProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("events_completed_producer", "events-completed", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}
