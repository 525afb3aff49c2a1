package models

import (
	"boxoffice/src/lib"
	"boxoffice/src/types"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketSale is an append-only purchase record. A refund never deletes the
// row; it flips Status to refunded and credits the release allocation back.
type TicketSale struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	Reference uuid.UUID        `gorm:"type:uuid" json:"reference"`
	EventID   uint             `json:"event_id,omitempty"`
	TypeID    uint             `json:"ticket_type_id,omitempty"`
	ReleaseID uint             `json:"release_id,omitempty"`
	Quantity  int              `json:"qty"`
	UnitPrice decimal.Decimal  `gorm:"type:numeric" json:"unit_price"`
	Total     decimal.Decimal  `gorm:"type:numeric" json:"total"`
	Currency  string           `json:"currency,omitempty"`
	Status    types.SaleStatus `gorm:"default:'completed'" json:"status"`

	BuyerName  string `json:"buyer_name,omitempty"`
	BuyerEmail string `json:"buyer_email,omitempty"`
	BuyerPhone string `json:"buyer_phone,omitempty"`

	PurchasedAt time.Time  `json:"purchased_at"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	Event   *Event         `gorm:"foreignKey:event_id" json:"event,omitempty"`
	Release *TicketRelease `gorm:"foreignKey:release_id" json:"release,omitempty"`

	types.Timestamps
}

func SaleCompletedProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("ticket_sales_producer", "ticket-sales", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}

func SaleRefundedProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("ticket_refunds_producer", "ticket-refunds", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}
