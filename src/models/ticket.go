package models

import (
	"boxoffice/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// TicketType is a named category of tickets within an event. Release order
// is significant: it is the sibling sequence the dependency resolver walks.
type TicketType struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	EventID  uint   `json:"event_id,omitempty"`
	Name     string `json:"name"`
	Position int    `json:"position"`

	Event    *Event          `gorm:"foreignKey:event_id" json:"event,omitempty"`
	Releases []TicketRelease `gorm:"foreignKey:ticket_type_id" json:"releases,omitempty"`

	types.Timestamps
}

// TicketRelease is a time-gated tranche of tickets. Allocation holds the
// remaining count only; the original allocation is reconstructed as
// allocation + sold count.
type TicketRelease struct {
	ID           uint                      `gorm:"primarykey" json:"id"`
	TicketTypeID uint                      `json:"ticket_type_id,omitempty"`
	Name         string                    `json:"name"`
	Allocation   int                       `json:"allocation"`
	Price        decimal.Decimal           `gorm:"type:numeric" json:"price"`
	Availability types.ReleaseAvailability `gorm:"default:'immediate'" json:"availability"`
	Position     int                       `json:"position"`

	StartsAt       *time.Time `json:"starts_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	EndWhenSoldOut bool       `json:"end_when_sold_out,omitempty"`
	DependsOnID    *uint      `json:"depends_on_id,omitempty"`

	StripePriceID *string `json:"-"`
	StripeLinkID  *string `json:"-"`

	TicketType *TicketType `gorm:"foreignKey:ticket_type_id" json:"ticket_type,omitempty"`

	types.Timestamps
}
