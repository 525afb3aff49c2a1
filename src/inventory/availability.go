package inventory

import (
	"boxoffice/src/models"
	"boxoffice/src/types"
	"fmt"
	"time"
)

// Evaluate decides the sale state of a release at a point in time.
// Allocation exhaustion always wins over calendar state: a release past its
// end date with zero allocation reports sold out, which tells a buyer more
// than closed would.
func Evaluate(release *models.TicketRelease, now time.Time, siblings []models.TicketRelease) types.AvailabilityState {
	if release.Allocation == 0 {
		return types.STATE_SOLD_OUT
	}

	switch release.Availability {
	case types.AVAILABILITY_IMMEDIATE:
		return types.STATE_ON_SALE
	case types.AVAILABILITY_SCHEDULED:
		if release.StartsAt != nil && now.Before(*release.StartsAt) {
			return types.STATE_NOT_YET_OPEN
		}
		if release.EndsAt != nil && !now.Before(*release.EndsAt) {
			return types.STATE_CLOSED
		}
		return types.STATE_ON_SALE
	case types.AVAILABILITY_AFTER_PREVIOUS:
		dep := ResolveDependency(siblings, release.DependsOnID)
		if dep == nil || dep.ID == release.ID {
			return types.STATE_BLOCKED
		}
		if dep.Allocation > 0 {
			return types.STATE_NOT_YET_OPEN
		}
		return types.STATE_ON_SALE
	}
	return types.STATE_BLOCKED
}

// ResolveDependency looks a dependency up within the owning ticket type's
// release list. The list is the arena, the ID is an index into it; nothing
// outside the sibling set ever resolves.
func ResolveDependency(siblings []models.TicketRelease, dependsOn *uint) *models.TicketRelease {
	if dependsOn == nil {
		return nil
	}
	for i := range siblings {
		if siblings[i].ID == *dependsOn {
			return &siblings[i]
		}
	}
	return nil
}

// DefaultDependency returns the release immediately preceding position in
// list order, used when the operator picks after_previous without choosing
// a dependency explicitly.
func DefaultDependency(siblings []models.TicketRelease, position int) *models.TicketRelease {
	var prev *models.TicketRelease
	for i := range siblings {
		if siblings[i].Position < position {
			if prev == nil || siblings[i].Position > prev.Position {
				prev = &siblings[i]
			}
		}
	}
	return prev
}

// ValidateReleaseChain reports configuration defects in a ticket type's
// release list: a dangling or missing dependency, a release depending on
// itself, or a dependency cycle. A cycle would deadlock availability
// permanently, so it must be reported, never silently resolved.
func ValidateReleaseChain(releases []models.TicketRelease) []types.ValidationIssue {
	issues := make([]types.ValidationIssue, 0)
	byId := make(map[uint]*models.TicketRelease, len(releases))
	for i := range releases {
		byId[releases[i].ID] = &releases[i]
	}
	for i := range releases {
		r := &releases[i]
		if r.Availability != types.AVAILABILITY_AFTER_PREVIOUS {
			continue
		}
		if r.DependsOnID == nil {
			issues = append(issues, types.ValidationIssue{
				ReleaseID: r.ID,
				Field:     "depends_on_id",
				Message:   fmt.Sprintf("release %q opens after another sells out but has no dependency configured", r.Name),
			})
			continue
		}
		dep, ok := byId[*r.DependsOnID]
		if !ok {
			issues = append(issues, types.ValidationIssue{
				ReleaseID: r.ID,
				Field:     "depends_on_id",
				Message:   fmt.Sprintf("release %q depends on a release that does not exist in this ticket type", r.Name),
			})
			continue
		}
		if dep.ID == r.ID {
			issues = append(issues, types.ValidationIssue{
				ReleaseID: r.ID,
				Field:     "depends_on_id",
				Message:   fmt.Sprintf("release %q depends on itself", r.Name),
			})
			continue
		}
		if hasCycle(r, byId) {
			issues = append(issues, types.ValidationIssue{
				ReleaseID: r.ID,
				Field:     "depends_on_id",
				Message:   fmt.Sprintf("release %q is part of a dependency cycle", r.Name),
			})
		}
	}
	return issues
}

func hasCycle(start *models.TicketRelease, byId map[uint]*models.TicketRelease) bool {
	seen := map[uint]bool{start.ID: true}
	cur := start
	for cur.Availability == types.AVAILABILITY_AFTER_PREVIOUS && cur.DependsOnID != nil {
		next, ok := byId[*cur.DependsOnID]
		if !ok {
			return false
		}
		if seen[next.ID] {
			return true
		}
		seen[next.ID] = true
		cur = next
	}
	return false
}
