package inventory

import (
	"boxoffice/src/db"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB gives each test its own in-memory database behind the db
// singleton. cache=shared keeps every pooled connection on the same store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("could not open test database: %s", err.Error())
	}
	err = gdb.AutoMigrate(
		&models.Event{},
		&models.TicketType{},
		&models.TicketRelease{},
		&models.TicketSale{},
		&models.JobTask{},
	)
	if err != nil {
		t.Fatalf("error migration: %s", err.Error())
	}
	db.NewDB(gdb)
	return gdb
}

func seedRelease(t *testing.T, gdb *gorm.DB, allocation int) (models.Event, models.TicketType, models.TicketRelease) {
	t.Helper()
	dateTime := time.Now().Add(24 * time.Hour)
	event := models.Event{
		Title:    "Warehouse Show",
		Name:     "warehouse-show",
		Slug:     "warehouse-show",
		Currency: "USD",
		Status:   types.EVENT_DRAFT,
		DateTime: &dateTime,
	}
	if err := gdb.Create(&event).Error; err != nil {
		t.Fatalf("could not create event: %s", err.Error())
	}
	ttype := models.TicketType{EventID: event.ID, Name: "General Admission", Position: 0}
	if err := gdb.Create(&ttype).Error; err != nil {
		t.Fatalf("could not create ticket type: %s", err.Error())
	}
	release := models.TicketRelease{
		TicketTypeID: ttype.ID,
		Name:         "Standard",
		Allocation:   allocation,
		Price:        decimal.NewFromInt(10),
		Availability: types.AVAILABILITY_IMMEDIATE,
		Position:     0,
	}
	if err := gdb.Create(&release).Error; err != nil {
		t.Fatalf("could not create release: %s", err.Error())
	}
	return event, ttype, release
}

func reloadRelease(t *testing.T, gdb *gorm.DB, id uint) models.TicketRelease {
	t.Helper()
	var release models.TicketRelease
	if err := gdb.Where(&models.TicketRelease{ID: id}).First(&release).Error; err != nil {
		t.Fatalf("could not reload release: %s", err.Error())
	}
	return release
}

var buyer = types.Buyer{Name: "Sam Buyer", Email: "sam@example.com"}

func TestApplySale(t *testing.T) {
	gdb := newTestDB(t)
	event, _, release := seedRelease(t, gdb, 10)

	sale, err := ApplySale(release.ID, 3, buyer)
	assert.Nil(t, err)
	assert.Equal(t, event.ID, sale.EventID)
	assert.Equal(t, 3, sale.Quantity)
	assert.Equal(t, types.SALE_COMPLETED, sale.Status)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(30)))
	assert.NotEmpty(t, sale.Reference.String())

	assert.Equal(t, 7, reloadRelease(t, gdb, release.ID).Allocation)

	sold, err := SoldCountTx(gdb, release.ID)
	assert.Nil(t, err)
	assert.Equal(t, 3, sold)
}

func TestApplySaleInsufficientAllocation(t *testing.T) {
	gdb := newTestDB(t)
	_, _, release := seedRelease(t, gdb, 5)

	_, err := ApplySale(release.ID, 6, buyer)
	assert.True(t, errors.Is(err, ErrInsufficientAllocation))

	// rejected whole: allocation untouched, no sale row appended
	assert.Equal(t, 5, reloadRelease(t, gdb, release.ID).Allocation)
	var count int64
	gdb.Model(&models.TicketSale{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApplySaleRejectsNonPositiveQuantity(t *testing.T) {
	gdb := newTestDB(t)
	_, _, release := seedRelease(t, gdb, 10)

	_, err := ApplySale(release.ID, -5, buyer)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
	_, err = ApplySale(release.ID, 0, buyer)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	// no inventory minted, no sale row appended
	assert.Equal(t, 10, reloadRelease(t, gdb, release.ID).Allocation)
	var count int64
	gdb.Model(&models.TicketSale{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApplySaleNotOnSale(t *testing.T) {
	gdb := newTestDB(t)
	_, _, release := seedRelease(t, gdb, 5)
	startsAt := time.Now().Add(time.Hour)
	gdb.Model(&models.TicketRelease{}).
		Where("id = ?", release.ID).
		Updates(map[string]any{
			"availability": types.AVAILABILITY_SCHEDULED,
			"starts_at":    &startsAt,
		})

	_, err := ApplySale(release.ID, 1, buyer)
	assert.True(t, errors.Is(err, ErrReleaseNotOnSale))
	assert.Equal(t, 5, reloadRelease(t, gdb, release.ID).Allocation)
}

func TestApplySaleUnknownRelease(t *testing.T) {
	newTestDB(t)

	_, err := ApplySale(12345, 1, buyer)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestApplySaleExhaustsRelease(t *testing.T) {
	gdb := newTestDB(t)
	_, _, release := seedRelease(t, gdb, 2)

	_, err := ApplySale(release.ID, 2, buyer)
	assert.Nil(t, err)
	assert.Equal(t, 0, reloadRelease(t, gdb, release.ID).Allocation)

	// the exhausted release now reports sold out, so the next sale bounces
	_, err = ApplySale(release.ID, 1, buyer)
	assert.True(t, errors.Is(err, ErrReleaseNotOnSale))
}

func TestApplyRefund(t *testing.T) {
	gdb := newTestDB(t)
	_, _, release := seedRelease(t, gdb, 10)

	sale, err := ApplySale(release.ID, 4, buyer)
	assert.Nil(t, err)
	assert.Equal(t, 6, reloadRelease(t, gdb, release.ID).Allocation)

	err = ApplyRefund(sale.ID)
	assert.Nil(t, err)
	assert.Equal(t, 10, reloadRelease(t, gdb, release.ID).Allocation)

	var refunded models.TicketSale
	assert.Nil(t, gdb.Where(&models.TicketSale{ID: sale.ID}).First(&refunded).Error)
	assert.Equal(t, types.SALE_REFUNDED, refunded.Status)
	assert.NotNil(t, refunded.RefundedAt)

	sold, err := SoldCountTx(gdb, release.ID)
	assert.Nil(t, err)
	assert.Equal(t, 0, sold)
}

func TestApplyRefundIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	_, _, release := seedRelease(t, gdb, 10)

	sale, err := ApplySale(release.ID, 4, buyer)
	assert.Nil(t, err)
	assert.Nil(t, ApplyRefund(sale.ID))

	// second refund credits nothing back
	err = ApplyRefund(sale.ID)
	assert.True(t, errors.Is(err, ErrAlreadyRefunded))
	assert.Equal(t, 10, reloadRelease(t, gdb, release.ID).Allocation)
}

func TestApplyRefundUnknownSale(t *testing.T) {
	newTestDB(t)

	err := ApplyRefund(999)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestEditOriginalAllocation(t *testing.T) {
	gdb := newTestDB(t)
	_, _, release := seedRelease(t, gdb, 10)

	_, err := ApplySale(release.ID, 4, buyer)
	assert.Nil(t, err)
	assert.Equal(t, 6, reloadRelease(t, gdb, release.ID).Allocation)

	// raising the original to 12 leaves 12 - 4 sold = 8 remaining
	assert.Nil(t, EditOriginalAllocation(release.ID, 12))
	assert.Equal(t, 8, reloadRelease(t, gdb, release.ID).Allocation)

	// shrinking below the sold count is rejected, state unchanged
	err = EditOriginalAllocation(release.ID, 3)
	assert.NotNil(t, err)
	assert.Equal(t, 8, reloadRelease(t, gdb, release.ID).Allocation)
}

func TestSaleNotifiesSubscribers(t *testing.T) {
	gdb := newTestDB(t)
	event, _, release := seedRelease(t, gdb, 10)

	notes, cancel := GetBus().Subscribe(event.ID)
	defer cancel()

	sale, err := ApplySale(release.ID, 1, buyer)
	assert.Nil(t, err)

	select {
	case note := <-notes:
		assert.Equal(t, "sale", note.Kind)
		assert.Equal(t, release.ID, note.ReleaseID)
		assert.Equal(t, sale.ID, note.SaleID)
	case <-time.After(time.Second):
		t.Fatal("no change note received after committed sale")
	}
}
