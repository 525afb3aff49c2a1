package inventory

import (
	"boxoffice/src/models"
	"boxoffice/src/types"
	"time"
)

// ReleaseStates evaluates every release of an event for the reporting
// surface. Pure read path: staleness is a display concern, not a
// correctness hazard.
func ReleaseStates(event *models.Event, now time.Time) []types.ReleaseAvailabilityView {
	views := make([]types.ReleaseAvailabilityView, 0)
	for ti := range event.TicketTypes {
		ttype := &event.TicketTypes[ti]
		for ri := range ttype.Releases {
			release := &ttype.Releases[ri]
			views = append(views, types.ReleaseAvailabilityView{
				ReleaseID:  release.ID,
				Name:       release.Name,
				Price:      release.Price,
				State:      Evaluate(release, now, ttype.Releases),
				Remaining:  release.Allocation,
				TicketType: ttype.Name,
			})
		}
	}
	return views
}
