package main

import (
	"boxoffice/src/config"
	"boxoffice/src/db"
	"boxoffice/src/inventory"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func eventHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/events", func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dateTime, err := time.Parse(config.TIME_PARSE_FORMAT, body.DateTime)
			if err != nil {
				log.Printf("Error parsing date_time: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event := models.Event{
				Title:              body.Title,
				Name:               body.Name,
				Slug:               slug.Make(body.Name),
				Currency:           body.Currency,
				ShowID:             body.ShowID,
				DateTime:           &dateTime,
				Status:             types.EVENT_DRAFT,
				ExternalTicketsURL: body.ExternalTicketsURL,
			}
			if body.Description != "" {
				event.Description = &body.Description
			}
			if body.ImportantInfo != "" {
				event.ImportantInfo = &body.ImportantInfo
			}
			gdb := db.GetDb()
			err = gdb.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&event).Error; err != nil {
					return err
				}
				// every event starts with a default category
				ttype := models.TicketType{
					EventID:  event.ID,
					Name:     "General Admission",
					Position: 0,
				}
				return tx.Create(&ttype).Error
			})
			if err != nil {
				log.Printf("error creating event: %s", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": event.ID})
		}).
		GET("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var event models.Event
			gdb := db.GetDb()
			err := gdb.
				Model(&models.Event{}).
				Where(&models.Event{ID: params.ID}).
				Preload("TicketTypes", func(db *gorm.DB) *gorm.DB {
					return db.Order("position asc")
				}).
				Preload("TicketTypes.Releases", func(db *gorm.DB) *gorm.DB {
					return db.Order("position asc")
				}).
				First(&event).
				Error
			if err != nil {
				log.Printf("Error finding event %d: %s\n", params.ID, err.Error())
				err := errors.New("Event does not exist")
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		}).
		PATCH("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Title != nil {
				updates["title"] = *body.Title
			}
			if body.Description != nil {
				updates["description"] = *body.Description
			}
			if body.ImportantInfo != nil {
				updates["important_info"] = *body.ImportantInfo
			}
			if body.Currency != nil {
				updates["currency"] = *body.Currency
			}
			if body.ExternalTicketsURL != nil {
				updates["external_tickets_url"] = *body.ExternalTicketsURL
			}
			if len(updates) == 0 {
				ctx.Status(http.StatusNoContent)
				return
			}
			gdb := db.GetDb()
			var event models.Event
			err := gdb.Transaction(func(tx *gorm.DB) error {
				if err := tx.Where(&models.Event{ID: params.ID}).First(&event).Error; err != nil {
					return err
				}
				return tx.
					Model(&models.Event{}).
					Where("id = ?", params.ID).
					Updates(updates).
					Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// a routine edit on a live page is re-synced best effort
			if event.Status == types.EVENT_PUBLISHED {
				go inventory.RefreshSalesPage(params.ID)
			}
			ctx.Status(http.StatusNoContent)
		}).
		PATCH("/events/:id/publish", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := inventory.PublishEvent(params.ID); err != nil {
				var verr *inventory.ValidationError
				if errors.As(err, &verr) {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "issues": verr.Issues})
					return
				}
				if errors.Is(err, inventory.ErrInvalidTransition) {
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"id": params.ID})
		}).
		PATCH("/events/:id/unpublish", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := inventory.UnpublishEvent(params.ID); err != nil {
				if errors.Is(err, inventory.ErrInvalidTransition) {
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		PATCH("/events/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := inventory.CancelEvent(params.ID); err != nil {
				if errors.Is(err, inventory.ErrInvalidTransition) {
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/events/:id/availability", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if cached, ok := lib.GetCachedAvailability(ctx.Request.Context(), params.ID); ok {
				ctx.Data(http.StatusOK, "application/json", []byte(cached))
				return
			}
			gdb := db.GetDb()
			var event models.Event
			err := gdb.
				Model(&models.Event{}).
				Where(&models.Event{ID: params.ID}).
				Preload("TicketTypes", func(db *gorm.DB) *gorm.DB {
					return db.Order("position asc")
				}).
				Preload("TicketTypes.Releases", func(db *gorm.DB) *gorm.DB {
					return db.Order("position asc")
				}).
				First(&event).
				Error
			if err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			views := inventory.ReleaseStates(&event, time.Now())
			payload, err := json.Marshal(gin.H{"data": views})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			lib.CacheAvailability(ctx.Request.Context(), params.ID, string(payload))
			ctx.Data(http.StatusOK, "application/json", payload)
		}).
		GET("/events/:id/stats", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			gdb := db.GetDb()
			var event models.Event
			var sales []models.TicketSale
			err := gdb.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Event{}).
					Where(&models.Event{ID: params.ID}).
					Preload("TicketTypes.Releases").
					First(&event).
					Error; err != nil {
					return err
				}
				var err error
				sales, err = inventory.EventSales(tx, params.ID)
				return err
			})
			if err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": inventory.EventStats(&event, sales)})
		}).
		GET("/events/:id/feed", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			notes, cancel := inventory.GetBus().Subscribe(params.ID)
			defer cancel()
			ctx.Stream(func(w io.Writer) bool {
				select {
				case note, ok := <-notes:
					if !ok {
						return false
					}
					ctx.SSEvent("change", note)
					return true
				case <-ctx.Request.Context().Done():
					return false
				}
			})
		})
	return g
}
