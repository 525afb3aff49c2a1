package inventory

import (
	"boxoffice/src/models"
	"boxoffice/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func uintPtr(v uint) *uint {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestEvaluateImmediate(t *testing.T) {
	now := time.Now()
	release := models.TicketRelease{
		ID:           1,
		Name:         "General",
		Allocation:   10,
		Availability: types.AVAILABILITY_IMMEDIATE,
	}

	assert.Equal(t, types.STATE_ON_SALE, Evaluate(&release, now, nil))

	release.Allocation = 0
	assert.Equal(t, types.STATE_SOLD_OUT, Evaluate(&release, now, nil))
}

func TestEvaluateScheduledWindow(t *testing.T) {
	now := time.Now()
	release := models.TicketRelease{
		ID:           1,
		Name:         "Presale",
		Allocation:   10,
		Availability: types.AVAILABILITY_SCHEDULED,
		StartsAt:     timePtr(now.Add(time.Hour)),
		EndsAt:       timePtr(now.Add(2 * time.Hour)),
	}

	assert.Equal(t, types.STATE_NOT_YET_OPEN, Evaluate(&release, now, nil))
	assert.Equal(t, types.STATE_ON_SALE, Evaluate(&release, now.Add(90*time.Minute), nil))
	assert.Equal(t, types.STATE_CLOSED, Evaluate(&release, now.Add(3*time.Hour), nil))
	// boundary: a release closes exactly at its end date
	assert.Equal(t, types.STATE_CLOSED, Evaluate(&release, *release.EndsAt, nil))
}

func TestEvaluateSoldOutBeatsCalendar(t *testing.T) {
	now := time.Now()
	release := models.TicketRelease{
		ID:           1,
		Name:         "Presale",
		Allocation:   0,
		Availability: types.AVAILABILITY_SCHEDULED,
		StartsAt:     timePtr(now.Add(-2 * time.Hour)),
		EndsAt:       timePtr(now.Add(-time.Hour)),
	}

	// past the end date and exhausted: sold out, not closed
	assert.Equal(t, types.STATE_SOLD_OUT, Evaluate(&release, now, nil))
}

func TestEvaluateAfterPrevious(t *testing.T) {
	now := time.Now()
	early := models.TicketRelease{
		ID:           1,
		Name:         "Early Bird",
		Allocation:   5,
		Availability: types.AVAILABILITY_IMMEDIATE,
		Position:     0,
	}
	standard := models.TicketRelease{
		ID:           2,
		Name:         "Standard",
		Allocation:   50,
		Availability: types.AVAILABILITY_AFTER_PREVIOUS,
		DependsOnID:  uintPtr(1),
		Position:     1,
	}
	siblings := []models.TicketRelease{early, standard}

	assert.Equal(t, types.STATE_NOT_YET_OPEN, Evaluate(&standard, now, siblings))

	siblings[0].Allocation = 0
	assert.Equal(t, types.STATE_ON_SALE, Evaluate(&standard, now, siblings))
}

func TestEvaluateBlockedOnUnresolvableDependency(t *testing.T) {
	now := time.Now()
	release := models.TicketRelease{
		ID:           2,
		Name:         "Standard",
		Allocation:   50,
		Availability: types.AVAILABILITY_AFTER_PREVIOUS,
		DependsOnID:  uintPtr(99),
	}

	assert.Equal(t, types.STATE_BLOCKED, Evaluate(&release, now, []models.TicketRelease{release}))

	release.DependsOnID = nil
	assert.Equal(t, types.STATE_BLOCKED, Evaluate(&release, now, []models.TicketRelease{release}))

	release.DependsOnID = uintPtr(2)
	assert.Equal(t, types.STATE_BLOCKED, Evaluate(&release, now, []models.TicketRelease{release}))
}

func TestResolveDependency(t *testing.T) {
	siblings := []models.TicketRelease{
		{ID: 1, Name: "Early Bird"},
		{ID: 2, Name: "Standard"},
	}

	dep := ResolveDependency(siblings, uintPtr(1))
	assert.NotNil(t, dep)
	assert.Equal(t, uint(1), dep.ID)

	assert.Nil(t, ResolveDependency(siblings, uintPtr(7)))
	assert.Nil(t, ResolveDependency(siblings, nil))
}

func TestDefaultDependency(t *testing.T) {
	siblings := []models.TicketRelease{
		{ID: 1, Position: 0},
		{ID: 2, Position: 1},
		{ID: 3, Position: 2},
	}

	prev := DefaultDependency(siblings, 2)
	assert.NotNil(t, prev)
	assert.Equal(t, uint(2), prev.ID)

	assert.Nil(t, DefaultDependency(siblings, 0))
}

func TestValidateReleaseChain(t *testing.T) {
	t.Run("clean chain has no issues", func(t *testing.T) {
		releases := []models.TicketRelease{
			{ID: 1, Name: "Early Bird", Availability: types.AVAILABILITY_IMMEDIATE, Position: 0},
			{ID: 2, Name: "Standard", Availability: types.AVAILABILITY_AFTER_PREVIOUS, DependsOnID: uintPtr(1), Position: 1},
			{ID: 3, Name: "Door", Availability: types.AVAILABILITY_AFTER_PREVIOUS, DependsOnID: uintPtr(2), Position: 2},
		}
		assert.Empty(t, ValidateReleaseChain(releases))
	})

	t.Run("missing dependency", func(t *testing.T) {
		releases := []models.TicketRelease{
			{ID: 2, Name: "Standard", Availability: types.AVAILABILITY_AFTER_PREVIOUS, DependsOnID: nil},
		}
		issues := ValidateReleaseChain(releases)
		assert.Len(t, issues, 1)
		assert.Equal(t, uint(2), issues[0].ReleaseID)
	})

	t.Run("dangling dependency", func(t *testing.T) {
		releases := []models.TicketRelease{
			{ID: 2, Name: "Standard", Availability: types.AVAILABILITY_AFTER_PREVIOUS, DependsOnID: uintPtr(42)},
		}
		issues := ValidateReleaseChain(releases)
		assert.Len(t, issues, 1)
	})

	t.Run("self dependency", func(t *testing.T) {
		releases := []models.TicketRelease{
			{ID: 2, Name: "Standard", Availability: types.AVAILABILITY_AFTER_PREVIOUS, DependsOnID: uintPtr(2)},
		}
		issues := ValidateReleaseChain(releases)
		assert.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "itself")
	})

	t.Run("two release cycle", func(t *testing.T) {
		releases := []models.TicketRelease{
			{ID: 1, Name: "A", Availability: types.AVAILABILITY_AFTER_PREVIOUS, DependsOnID: uintPtr(2)},
			{ID: 2, Name: "B", Availability: types.AVAILABILITY_AFTER_PREVIOUS, DependsOnID: uintPtr(1)},
		}
		issues := ValidateReleaseChain(releases)
		assert.Len(t, issues, 2)
		for _, issue := range issues {
			assert.Contains(t, issue.Message, "cycle")
		}
	})
}
