package inventory

import (
	"boxoffice/src/models"
	"boxoffice/src/models/scopes"
	"boxoffice/src/types"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The ledger is a pure projection over (release, sale records). The
// release's allocation column is the single source of truth for
// "remaining"; everything else here is recomputed on demand.

// SoldCount sums quantity over the release's non-refunded sales.
func SoldCount(release *models.TicketRelease, sales []models.TicketSale) int {
	sold := 0
	for i := range sales {
		if sales[i].ReleaseID != release.ID {
			continue
		}
		if sales[i].Status == types.SALE_REFUNDED {
			continue
		}
		sold += sales[i].Quantity
	}
	return sold
}

// OriginalAllocation reconstructs the allocation the release started with.
// Remaining is decremented in place on every sale, so the original can only
// be recovered as remaining + sold.
func OriginalAllocation(release *models.TicketRelease, sales []models.TicketSale) int {
	return release.Allocation + SoldCount(release, sales)
}

// SoldCountTx is the SQL form used inside sale/refund transactions.
func SoldCountTx(tx *gorm.DB, releaseId uint) (int, error) {
	var stats struct {
		Sold int
	}
	err := tx.
		Model(&models.TicketSale{}).
		Scopes(scopes.WithRelease(releaseId), scopes.NotRefunded).
		Select("COALESCE(SUM(quantity), 0) as sold").
		Scan(&stats).
		Error
	if err != nil {
		return 0, err
	}
	return stats.Sold, nil
}

// TicketsSold rolls sold counts up to the event level.
func TicketsSold(event *models.Event, sales []models.TicketSale) int {
	sold := 0
	for i := range sales {
		if sales[i].EventID != event.ID {
			continue
		}
		if sales[i].Status == types.SALE_REFUNDED {
			continue
		}
		sold += sales[i].Quantity
	}
	return sold
}

// TotalRevenue sums total price over the event's non-refunded sales.
func TotalRevenue(event *models.Event, sales []models.TicketSale) decimal.Decimal {
	revenue := decimal.Zero
	for i := range sales {
		if sales[i].EventID != event.ID {
			continue
		}
		if sales[i].Status == types.SALE_REFUNDED {
			continue
		}
		revenue = revenue.Add(sales[i].Total)
	}
	return revenue
}

// TotalAllocation sums per-release original allocation over all releases of
// all ticket types, so already-sold tickets still count toward the total.
func TotalAllocation(event *models.Event, sales []models.TicketSale) int {
	total := 0
	for ti := range event.TicketTypes {
		releases := event.TicketTypes[ti].Releases
		for ri := range releases {
			total += OriginalAllocation(&releases[ri], sales)
		}
	}
	return total
}

// Progress reports (sold, total) for display. A zero total reports zero
// progress rather than an error.
func Progress(event *models.Event, sales []models.TicketSale) (int, int) {
	return TicketsSold(event, sales), TotalAllocation(event, sales)
}

// EventStats assembles the reporting view dashboards consume.
func EventStats(event *models.Event, sales []models.TicketSale) types.EventStatsView {
	sold, total := Progress(event, sales)
	progress := 0.0
	if total > 0 {
		progress = float64(sold) / float64(total)
	}
	return types.EventStatsView{
		TicketsSold:     sold,
		TotalRevenue:    TotalRevenue(event, sales),
		TotalAllocation: total,
		Progress:        progress,
	}
}

// EventSales loads the full sale history for an event, refunded rows
// included. Sales are append-only, so this is the complete audit trail.
func EventSales(tx *gorm.DB, eventId uint) ([]models.TicketSale, error) {
	var sales []models.TicketSale
	err := tx.
		Model(&models.TicketSale{}).
		Scopes(scopes.WithEvent(eventId)).
		Order("purchased_at asc").
		Find(&sales).
		Error
	return sales, err
}
