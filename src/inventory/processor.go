package inventory

import (
	"boxoffice/src/config"
	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate takes a row lock on dialects that support it. The guarded
// UPDATE below is the backstop either way: allocation can never go negative.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isInventoryError(err error) bool {
	return errors.Is(err, ErrReleaseNotOnSale) ||
		errors.Is(err, ErrInsufficientAllocation) ||
		errors.Is(err, ErrAlreadyRefunded) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

// ApplySale decrements the release allocation and appends the sale record
// in one transaction. Availability is re-evaluated at execution time, not
// at form-render time: the check and the act share the atomic unit.
func ApplySale(releaseId uint, qty int, buyer types.Buyer) (*models.TicketSale, error) {
	// a non-positive quantity would pass the allocation comparison and the
	// guarded decrement, crediting inventory instead of consuming it
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	gdb := db.GetDb()
	var sale models.TicketSale
	var lastErr error
	for attempt := 0; attempt < config.SALE_RETRY_BUDGET; attempt++ {
		sale = models.TicketSale{}
		err := gdb.Transaction(func(tx *gorm.DB) error {
			var release models.TicketRelease
			if err := lockForUpdate(tx).
				Where(&models.TicketRelease{ID: releaseId}).
				First(&release).
				Error; err != nil {
				return err
			}
			var siblings []models.TicketRelease
			if err := tx.
				Where(&models.TicketRelease{TicketTypeID: release.TicketTypeID}).
				Order("position asc").
				Find(&siblings).
				Error; err != nil {
				return err
			}
			if state := Evaluate(&release, time.Now(), siblings); state != types.STATE_ON_SALE {
				return ErrReleaseNotOnSale
			}
			if release.Allocation < qty {
				return ErrInsufficientAllocation
			}

			var ttype models.TicketType
			if err := tx.Where(&models.TicketType{ID: release.TicketTypeID}).First(&ttype).Error; err != nil {
				return err
			}
			var event models.Event
			if err := tx.Where(&models.Event{ID: ttype.EventID}).First(&event).Error; err != nil {
				return err
			}

			sale = models.TicketSale{
				Reference:   uuid.New(),
				EventID:     event.ID,
				TypeID:      ttype.ID,
				ReleaseID:   release.ID,
				Quantity:    qty,
				UnitPrice:   release.Price,
				Total:       release.Price.Mul(decimal.NewFromInt(int64(qty))),
				Currency:    event.Currency,
				Status:      types.SALE_COMPLETED,
				BuyerName:   buyer.Name,
				BuyerEmail:  buyer.Email,
				BuyerPhone:  buyer.Phone,
				PurchasedAt: time.Now(),
			}
			if err := tx.Create(&sale).Error; err != nil {
				return err
			}

			res := tx.
				Model(&models.TicketRelease{}).
				Where("id = ? AND allocation >= ?", release.ID, qty).
				Update("allocation", gorm.Expr("allocation - ?", qty))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientAllocation
			}
			return nil
		})
		if err == nil {
			afterSale(&sale)
			return &sale, nil
		}
		if isInventoryError(err) {
			return nil, err
		}
		lastErr = err
		log.Printf("[inventory] Sale attempt %d for release %d failed: %s\n", attempt+1, releaseId, err.Error())
	}
	return nil, fmt.Errorf("%w: %s", ErrTryAgain, lastErr.Error())
}

// ApplyRefund flips a completed sale to refunded and returns its quantity
// to the release pool. Safe to retry: a second attempt fails with
// ErrAlreadyRefunded and credits nothing.
func ApplyRefund(saleId uint) error {
	gdb := db.GetDb()
	var sale models.TicketSale
	var lastErr error
	for attempt := 0; attempt < config.SALE_RETRY_BUDGET; attempt++ {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := lockForUpdate(tx).
				Where(&models.TicketSale{ID: saleId}).
				First(&sale).
				Error; err != nil {
				return err
			}
			if sale.Status == types.SALE_REFUNDED {
				return ErrAlreadyRefunded
			}
			now := time.Now()
			if err := tx.
				Model(&models.TicketSale{}).
				Where(&models.TicketSale{ID: sale.ID}).
				Updates(map[string]any{
					"status":      types.SALE_REFUNDED,
					"refunded_at": &now,
				}).
				Error; err != nil {
				return err
			}
			if err := tx.
				Model(&models.TicketRelease{}).
				Where("id = ?", sale.ReleaseID).
				Update("allocation", gorm.Expr("allocation + ?", sale.Quantity)).
				Error; err != nil {
				return err
			}
			return nil
		})
		if err == nil {
			afterRefund(&sale)
			return nil
		}
		if isInventoryError(err) {
			return err
		}
		lastErr = err
		log.Printf("[inventory] Refund attempt %d for sale %d failed: %s\n", attempt+1, saleId, err.Error())
	}
	return fmt.Errorf("%w: %s", ErrTryAgain, lastErr.Error())
}

// EditOriginalAllocation changes a release's original allocation and
// recomputes remaining against sold count inside the same transaction. A
// raw overwrite of allocation is never allowed once sales exist.
func EditOriginalAllocation(releaseId uint, newOriginal int) error {
	gdb := db.GetDb()
	var eventId uint
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var release models.TicketRelease
		if err := lockForUpdate(tx).
			Where(&models.TicketRelease{ID: releaseId}).
			First(&release).
			Error; err != nil {
			return err
		}
		sold, err := SoldCountTx(tx, release.ID)
		if err != nil {
			return err
		}
		remaining := newOriginal - sold
		if remaining < 0 {
			return fmt.Errorf("original allocation %d is below the %d tickets already sold", newOriginal, sold)
		}
		if err := tx.
			Model(&models.TicketRelease{}).
			Where("id = ?", release.ID).
			Update("allocation", remaining).
			Error; err != nil {
			return err
		}
		var ttype models.TicketType
		if err := tx.Where(&models.TicketType{ID: release.TicketTypeID}).First(&ttype).Error; err != nil {
			return err
		}
		eventId = ttype.EventID
		return nil
	})
	if err != nil {
		return err
	}
	GetBus().Notify(ChangeNote{EventID: eventId, ReleaseID: releaseId, Kind: "allocation_edit"})
	lib.DropAvailability(context.Background(), eventId)
	return nil
}

func afterSale(sale *models.TicketSale) {
	GetBus().Notify(ChangeNote{
		EventID:   sale.EventID,
		ReleaseID: sale.ReleaseID,
		SaleID:    sale.ID,
		Kind:      "sale",
	})
	lib.DropAvailability(context.Background(), sale.EventID)
	go models.SaleCompletedProducer(sale.ID, map[string]any{
		"id":          sale.ID,
		"reference":   sale.Reference.String(),
		"event_id":    sale.EventID,
		"release_id":  sale.ReleaseID,
		"qty":         sale.Quantity,
		"total":       sale.Total.String(),
		"currency":    sale.Currency,
		"buyer_name":  sale.BuyerName,
		"buyer_email": sale.BuyerEmail,
	})
}

func afterRefund(sale *models.TicketSale) {
	GetBus().Notify(ChangeNote{
		EventID:   sale.EventID,
		ReleaseID: sale.ReleaseID,
		SaleID:    sale.ID,
		Kind:      "refund",
	})
	lib.DropAvailability(context.Background(), sale.EventID)
	go models.SaleRefundedProducer(sale.ID, map[string]any{
		"id":         sale.ID,
		"reference":  sale.Reference.String(),
		"event_id":   sale.EventID,
		"release_id": sale.ReleaseID,
		"qty":        sale.Quantity,
	})
}
