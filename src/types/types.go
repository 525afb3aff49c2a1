package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Metadata map[string]any

type EventStatus string

const (
	EVENT_DRAFT       EventStatus = "draft"
	EVENT_SCHEDULED   EventStatus = "scheduled"
	EVENT_PUBLISHED   EventStatus = "published"
	EVENT_UNPUBLISHED EventStatus = "unpublished"
	EVENT_COMPLETED   EventStatus = "completed"
	EVENT_CANCELED    EventStatus = "canceled"
)

type SaleStatus string

const (
	SALE_COMPLETED SaleStatus = "completed"
	SALE_REFUNDED  SaleStatus = "refunded"
)

// ReleaseAvailability selects how a release's sale window is gated.
type ReleaseAvailability string

const (
	AVAILABILITY_IMMEDIATE      ReleaseAvailability = "immediate"
	AVAILABILITY_SCHEDULED      ReleaseAvailability = "scheduled"
	AVAILABILITY_AFTER_PREVIOUS ReleaseAvailability = "after_previous"
)

type AvailabilityState string

const (
	STATE_NOT_YET_OPEN AvailabilityState = "not_yet_open"
	STATE_ON_SALE      AvailabilityState = "on_sale"
	STATE_SOLD_OUT     AvailabilityState = "sold_out"
	STATE_CLOSED       AvailabilityState = "closed"
	STATE_BLOCKED      AvailabilityState = "blocked"
)

// ValidationIssue is a configuration-time defect surfaced to the operator,
// never a crash.
type ValidationIssue struct {
	ReleaseID uint   `json:"release_id,omitempty"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateEventRequestBody struct {
	Title              string  `json:"title" binding:"required"`
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description,omitempty"`
	ImportantInfo      string  `json:"important_info,omitempty"`
	Currency           string  `json:"currency,omitempty"`
	ShowID             uint    `json:"show_id,omitempty"`
	DateTime           string  `json:"date_time" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	ExternalTicketsURL *string `json:"external_tickets_url,omitempty" binding:"omitempty,url"`
}

type UpdateEventRequestBody struct {
	Title              *string `json:"title,omitempty"`
	Description        *string `json:"description,omitempty"`
	ImportantInfo      *string `json:"important_info,omitempty"`
	Currency           *string `json:"currency,omitempty"`
	ExternalTicketsURL *string `json:"external_tickets_url,omitempty" binding:"omitempty,url"`
}

type CreateTicketTypeRequestBody struct {
	Name string `json:"name" binding:"required"`
}

type CreateReleaseRequestBody struct {
	Name           string  `json:"name" binding:"required"`
	Allocation     int     `json:"allocation" binding:"min=0"`
	Price          string  `json:"price" binding:"required"`
	Availability   string  `json:"availability" binding:"required,oneof=immediate scheduled after_previous"`
	StartsAt       *string `json:"starts_at,omitempty" binding:"omitempty,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndsAt         *string `json:"ends_at,omitempty" binding:"omitempty,gtdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
	EndWhenSoldOut bool    `json:"end_when_sold_out,omitempty"`
	DependsOnID    *uint   `json:"depends_on_id,omitempty"`
}

type UpdateReleaseRequestBody struct {
	Name               *string `json:"name,omitempty"`
	Price              *string `json:"price,omitempty"`
	OriginalAllocation *int    `json:"original_allocation,omitempty" binding:"omitempty,min=0"`
	StartsAt           *string `json:"starts_at,omitempty" time_format:"2006-01-02 15:04:05 -07:00"`
	EndsAt             *string `json:"ends_at,omitempty" time_format:"2006-01-02 15:04:05 -07:00"`
	EndWhenSoldOut     *bool   `json:"end_when_sold_out,omitempty"`
	DependsOnID        *uint   `json:"depends_on_id,omitempty"`
}

type Buyer struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone,omitempty"`
}

type CreateSaleRequestBody struct {
	ReleaseID uint  `json:"release" binding:"required"`
	Quantity  int   `json:"qty" binding:"required,min=1"`
	Buyer     Buyer `json:"buyer" binding:"required"`
}

type ReleaseAvailabilityView struct {
	ReleaseID  uint              `json:"release_id"`
	Name       string            `json:"name"`
	Price      decimal.Decimal   `json:"price"`
	State      AvailabilityState `json:"state"`
	Remaining  int               `json:"remaining"`
	TicketType string            `json:"ticket_type"`
}

type EventStatsView struct {
	TicketsSold     int             `json:"tickets_sold"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalAllocation int             `json:"total_allocation"`
	Progress        float64         `json:"progress"`
}
