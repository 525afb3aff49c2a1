package inventory

import (
	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// stripePagePublisher backs the sales page with Stripe products and
// payment links, one link per release.
type stripePagePublisher struct{}

var minorUnits = decimal.NewFromInt(100)

func (p *stripePagePublisher) ensureRelease(event *models.Event, ttype *models.TicketType, release *models.TicketRelease) error {
	sc := lib.GetStripeClient()
	gdb := db.GetDb()
	if release.StripePriceID == nil {
		unitAmount := release.Price.Mul(minorUnits).IntPart()
		product, err := sc.V1Products.Create(context.Background(), &stripe.ProductCreateParams{
			Name: stripe.String(fmt.Sprintf("%s — %s", ttype.Name, release.Name)),
			DefaultPriceData: &stripe.ProductCreateDefaultPriceDataParams{
				Currency:   stripe.String(event.Currency),
				UnitAmount: stripe.Int64(unitAmount),
			},
			Metadata: map[string]string{
				"event_id":   fmt.Sprint(event.ID),
				"type_id":    fmt.Sprint(ttype.ID),
				"release_id": fmt.Sprint(release.ID),
			},
		})
		if err != nil {
			return err
		}
		release.StripePriceID = &product.DefaultPrice.ID
		if err := gdb.
			Model(&models.TicketRelease{}).
			Where("id = ?", release.ID).
			Update("stripe_price_id", product.DefaultPrice.ID).
			Error; err != nil {
			return err
		}
	}
	if release.StripeLinkID == nil {
		linkId, _, err := lib.CreatePaymentLink(*release.StripePriceID, 1)
		if err != nil {
			return err
		}
		release.StripeLinkID = &linkId
		if err := gdb.
			Model(&models.TicketRelease{}).
			Where("id = ?", release.ID).
			Update("stripe_link_id", linkId).
			Error; err != nil {
			return err
		}
	}
	return nil
}

func (p *stripePagePublisher) Publish(event *models.Event) (string, error) {
	if event.UsesExternalTicketing() {
		return *event.ExternalTicketsURL, nil
	}
	for ti := range event.TicketTypes {
		ttype := &event.TicketTypes[ti]
		for ri := range ttype.Releases {
			if err := p.ensureRelease(event, ttype, &ttype.Releases[ri]); err != nil {
				return "", err
			}
		}
	}
	url := fmt.Sprintf("%s/events/%s", os.Getenv("PAGES_HOST"), event.Slug)
	return url, nil
}

func (p *stripePagePublisher) Unpublish(event *models.Event) error {
	if event.UsesExternalTicketing() {
		return nil
	}
	gdb := db.GetDb()
	for ti := range event.TicketTypes {
		for ri := range event.TicketTypes[ti].Releases {
			release := &event.TicketTypes[ti].Releases[ri]
			if release.StripeLinkID == nil {
				continue
			}
			if err := lib.DeactivatePaymentLink(*release.StripeLinkID); err != nil {
				return err
			}
			if err := gdb.
				Model(&models.TicketRelease{}).
				Where("id = ?", release.ID).
				Update("stripe_link_id", nil).
				Error; err != nil {
				return err
			}
			release.StripeLinkID = nil
		}
	}
	return nil
}

// Refresh picks up releases added or repriced since the last publish.
// Repricing rotates the default price on the existing product.
func (p *stripePagePublisher) Refresh(event *models.Event) error {
	if event.UsesExternalTicketing() {
		return nil
	}
	for ti := range event.TicketTypes {
		ttype := &event.TicketTypes[ti]
		for ri := range ttype.Releases {
			if err := p.ensureRelease(event, ttype, &ttype.Releases[ri]); err != nil {
				log.Printf("[stripe] Could not sync release %d: %s\n", ttype.Releases[ri].ID, err.Error())
				return err
			}
		}
	}
	return nil
}
