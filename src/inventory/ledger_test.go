package inventory

import (
	"boxoffice/src/models"
	"boxoffice/src/types"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSoldCountIgnoresRefunds(t *testing.T) {
	release := models.TicketRelease{ID: 1, Allocation: 90}
	sales := []models.TicketSale{
		{ReleaseID: 1, Quantity: 4, Status: types.SALE_COMPLETED},
		{ReleaseID: 1, Quantity: 2, Status: types.SALE_REFUNDED},
		{ReleaseID: 1, Quantity: 6, Status: types.SALE_COMPLETED},
		{ReleaseID: 2, Quantity: 3, Status: types.SALE_COMPLETED},
	}

	assert.Equal(t, 10, SoldCount(&release, sales))
}

func TestOriginalAllocation(t *testing.T) {
	release := models.TicketRelease{ID: 1, Allocation: 90}
	sales := []models.TicketSale{
		{ReleaseID: 1, Quantity: 10, Status: types.SALE_COMPLETED},
	}

	// remaining + sold always reconstructs the starting point
	assert.Equal(t, 100, OriginalAllocation(&release, sales))

	assert.Equal(t, 90, OriginalAllocation(&release, nil))
}

func TestEventRollups(t *testing.T) {
	event := models.Event{
		ID: 7,
		TicketTypes: []models.TicketType{
			{
				ID: 1,
				Releases: []models.TicketRelease{
					{ID: 1, Allocation: 5},
					{ID: 2, Allocation: 45},
				},
			},
			{
				ID: 2,
				Releases: []models.TicketRelease{
					{ID: 3, Allocation: 20},
				},
			},
		},
	}
	sales := []models.TicketSale{
		{EventID: 7, ReleaseID: 1, Quantity: 5, Total: decimal.NewFromInt(50), Status: types.SALE_COMPLETED},
		{EventID: 7, ReleaseID: 2, Quantity: 3, Total: decimal.NewFromInt(45), Status: types.SALE_COMPLETED},
		{EventID: 7, ReleaseID: 2, Quantity: 2, Total: decimal.NewFromInt(30), Status: types.SALE_REFUNDED},
		{EventID: 8, ReleaseID: 9, Quantity: 4, Total: decimal.NewFromInt(99), Status: types.SALE_COMPLETED},
	}

	assert.Equal(t, 8, TicketsSold(&event, sales))
	assert.True(t, TotalRevenue(&event, sales).Equal(decimal.NewFromInt(95)))
	// 5 remaining+5 sold, 45 remaining+5 sold(3 kept, 2 refunded back), 20 untouched
	assert.Equal(t, 78, TotalAllocation(&event, sales))

	sold, total := Progress(&event, sales)
	assert.Equal(t, 8, sold)
	assert.Equal(t, 78, total)
}

func TestEventStatsZeroTotal(t *testing.T) {
	event := models.Event{ID: 7}

	stats := EventStats(&event, nil)
	assert.Equal(t, 0, stats.TicketsSold)
	assert.Equal(t, 0, stats.TotalAllocation)
	assert.Equal(t, 0.0, stats.Progress)
	assert.True(t, stats.TotalRevenue.IsZero())
}

func TestEventStatsProgress(t *testing.T) {
	event := models.Event{
		ID: 7,
		TicketTypes: []models.TicketType{
			{ID: 1, Releases: []models.TicketRelease{{ID: 1, Allocation: 75}}},
		},
	}
	sales := []models.TicketSale{
		{EventID: 7, ReleaseID: 1, Quantity: 25, Total: decimal.NewFromInt(250), Status: types.SALE_COMPLETED},
	}

	stats := EventStats(&event, sales)
	assert.Equal(t, 25, stats.TicketsSold)
	assert.Equal(t, 100, stats.TotalAllocation)
	assert.InDelta(t, 0.25, stats.Progress, 0.0001)
}
