package main

import (
	"boxoffice/src/config"
	"boxoffice/src/db"
	"boxoffice/src/inventory"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func parseWindowDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(config.TIME_PARSE_FORMAT, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func siblingReleases(tx *gorm.DB, typeId uint) ([]models.TicketRelease, error) {
	var releases []models.TicketRelease
	err := tx.
		Where(&models.TicketRelease{TicketTypeID: typeId}).
		Order("position asc").
		Find(&releases).
		Error
	return releases, err
}

func refreshIfPublished(tx *gorm.DB, typeId uint) {
	var ttype models.TicketType
	if err := tx.Where(&models.TicketType{ID: typeId}).Preload("Event").First(&ttype).Error; err != nil {
		return
	}
	if ttype.Event != nil && ttype.Event.Status == types.EVENT_PUBLISHED {
		go inventory.RefreshSalesPage(ttype.EventID)
	}
}

func ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/events/:id/types", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CreateTicketTypeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			ttype := models.TicketType{EventID: params.ID, Name: body.Name}
			err := gdb.Transaction(func(tx *gorm.DB) error {
				var event models.Event
				if err := tx.Where(&models.Event{ID: params.ID}).First(&event).Error; err != nil {
					return fmt.Errorf("event %d does not exist", params.ID)
				}
				var count int64
				if err := tx.
					Model(&models.TicketType{}).
					Where(&models.TicketType{EventID: params.ID}).
					Count(&count).
					Error; err != nil {
					return err
				}
				ttype.Position = int(count)
				return tx.Create(&ttype).Error
			})
			if err != nil {
				log.Printf("error creating ticket type: %s", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": ttype.ID})
		}).
		GET("/events/:id/types", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var ttypes []models.TicketType
			gdb := db.GetDb()
			if err := gdb.
				Where(&models.TicketType{EventID: params.ID}).
				Preload("Releases", func(db *gorm.DB) *gorm.DB {
					return db.Order("position asc")
				}).
				Order("position asc").
				Find(&ttypes).
				Error; err != nil {
				log.Printf("Error retrieving ticket types: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ttypes, "count": len(ttypes)})
		}).
		POST("/types/:id/releases", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CreateReleaseRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			price, err := decimal.NewFromString(body.Price)
			if err != nil || price.IsNegative() {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "price must be a non-negative decimal"})
				return
			}
			startsAt, err := parseWindowDate(body.StartsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			endsAt, err := parseWindowDate(body.EndsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			release := models.TicketRelease{
				TicketTypeID:   params.ID,
				Name:           body.Name,
				Allocation:     body.Allocation,
				Price:          price,
				Availability:   types.ReleaseAvailability(body.Availability),
				StartsAt:       startsAt,
				EndsAt:         endsAt,
				EndWhenSoldOut: body.EndWhenSoldOut,
				DependsOnID:    body.DependsOnID,
			}
			gdb := db.GetDb()
			var issues []types.ValidationIssue
			var ttype models.TicketType
			err = gdb.Transaction(func(tx *gorm.DB) error {
				if err := tx.Where(&models.TicketType{ID: params.ID}).First(&ttype).Error; err != nil {
					return fmt.Errorf("ticket type %d does not exist", params.ID)
				}
				siblings, err := siblingReleases(tx, params.ID)
				if err != nil {
					return err
				}
				release.Position = len(siblings)
				// after_previous with no explicit pick defaults to the
				// release immediately before it in list order
				if release.Availability == types.AVAILABILITY_AFTER_PREVIOUS && release.DependsOnID == nil {
					if prev := inventory.DefaultDependency(siblings, release.Position); prev != nil {
						release.DependsOnID = &prev.ID
					}
				}
				if err := tx.Create(&release).Error; err != nil {
					return err
				}
				chain := append(siblings, release)
				issues = inventory.ValidateReleaseChain(chain)
				if len(issues) > 0 {
					return &inventory.ValidationError{Issues: issues}
				}
				return nil
			})
			if err != nil {
				var verr *inventory.ValidationError
				if errors.As(err, &verr) {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "issues": verr.Issues})
					return
				}
				log.Printf("error creating release: %s", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if release.Availability == types.AVAILABILITY_SCHEDULED && release.StartsAt != nil {
				inventory.ScheduleWindowRefresh(ttype.EventID, *release.StartsAt)
			}
			refreshIfPublished(gdb, params.ID)
			ctx.JSON(http.StatusCreated, gin.H{"id": release.ID})
		}).
		GET("/releases/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			gdb := db.GetDb()
			var release models.TicketRelease
			var sold int
			err := gdb.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.TicketRelease{ID: params.ID}).
					Preload("TicketType").
					First(&release).
					Error; err != nil {
					return err
				}
				var err error
				sold, err = inventory.SoldCountTx(tx, release.ID)
				return err
			})
			if err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"data":                release,
				"sold":                sold,
				"original_allocation": release.Allocation + sold,
			})
		}).
		PATCH("/releases/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateReleaseRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var release models.TicketRelease
			var issues []types.ValidationIssue
			var windowOpens *time.Time
			err := gdb.Transaction(func(tx *gorm.DB) error {
				if err := tx.Where(&models.TicketRelease{ID: params.ID}).First(&release).Error; err != nil {
					return err
				}
				updates := map[string]any{}
				if body.Name != nil {
					updates["name"] = *body.Name
				}
				if body.Price != nil {
					price, err := decimal.NewFromString(*body.Price)
					if err != nil || price.IsNegative() {
						return errors.New("price must be a non-negative decimal")
					}
					updates["price"] = price
					// next page refresh mints a new stripe price
					updates["stripe_price_id"] = nil
					updates["stripe_link_id"] = nil
				}
				if body.StartsAt != nil {
					startsAt, err := parseWindowDate(body.StartsAt)
					if err != nil {
						return err
					}
					updates["starts_at"] = startsAt
					windowOpens = startsAt
				}
				if body.EndsAt != nil {
					endsAt, err := parseWindowDate(body.EndsAt)
					if err != nil {
						return err
					}
					updates["ends_at"] = endsAt
				}
				if body.EndWhenSoldOut != nil {
					updates["end_when_sold_out"] = *body.EndWhenSoldOut
				}
				if body.DependsOnID != nil {
					updates["depends_on_id"] = *body.DependsOnID
				}
				if len(updates) > 0 {
					if err := tx.
						Model(&models.TicketRelease{}).
						Where("id = ?", params.ID).
						Updates(updates).
						Error; err != nil {
						return err
					}
				}
				siblings, err := siblingReleases(tx, release.TicketTypeID)
				if err != nil {
					return err
				}
				issues = inventory.ValidateReleaseChain(siblings)
				if len(issues) > 0 {
					return &inventory.ValidationError{Issues: issues}
				}
				return nil
			})
			if err != nil {
				var verr *inventory.ValidationError
				if errors.As(err, &verr) {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "issues": verr.Issues})
					return
				}
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// allocation edits reconcile against sold count, never overwrite
			if body.OriginalAllocation != nil {
				if err := inventory.EditOriginalAllocation(params.ID, *body.OriginalAllocation); err != nil {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
					return
				}
			}
			if windowOpens != nil && release.Availability == types.AVAILABILITY_SCHEDULED {
				var ttype models.TicketType
				if err := gdb.Where(&models.TicketType{ID: release.TicketTypeID}).First(&ttype).Error; err == nil {
					inventory.ScheduleWindowRefresh(ttype.EventID, *windowOpens)
				}
			}
			refreshIfPublished(gdb, release.TicketTypeID)
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/releases/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			gdb := db.GetDb()
			err := gdb.Transaction(func(tx *gorm.DB) error {
				var count int64
				if err := tx.
					Model(&models.TicketSale{}).
					Where(&models.TicketSale{ReleaseID: params.ID}).
					Count(&count).
					Error; err != nil {
					return err
				}
				if count > 0 {
					return errors.New("deleting a release with sales is not allowed")
				}
				return tx.Delete(&models.TicketRelease{ID: params.ID}).Error
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
