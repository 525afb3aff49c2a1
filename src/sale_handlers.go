package main

import (
	"boxoffice/src/db"
	"boxoffice/src/inventory"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// saleHandlers is the boundary the payment collaborator calls into: a
// completed checkout posts a sale, a refund request posts a refund. The
// inventory-side effect is what gets accepted or rejected here.
func saleHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/sales", func(ctx *gin.Context) {
			var body types.CreateSaleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			sale, err := inventory.ApplySale(body.ReleaseID, body.Quantity, body.Buyer)
			if err != nil {
				log.Printf("Could not apply sale for release %d: %s\n", body.ReleaseID, err.Error())
				switch {
				case errors.Is(err, inventory.ErrInsufficientAllocation),
					errors.Is(err, inventory.ErrReleaseNotOnSale),
					errors.Is(err, inventory.ErrInvalidQuantity):
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				case errors.Is(err, inventory.ErrTryAgain):
					ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				case errors.Is(err, gorm.ErrRecordNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": "release does not exist"})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": sale.ID, "reference": sale.Reference})
		}).
		GET("/sales/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var sale models.TicketSale
			gdb := db.GetDb()
			if err := gdb.
				Where(&models.TicketSale{ID: params.ID}).
				Preload("Release").
				Preload("Event").
				First(&sale).
				Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": sale})
		}).
		GET("/events/:id/sales", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			gdb := db.GetDb()
			sales, err := inventory.EventSales(gdb, params.ID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": sales, "count": len(sales)})
		}).
		POST("/sales/:id/refund", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := inventory.ApplyRefund(params.ID); err != nil {
				log.Printf("Could not refund sale %d: %s\n", params.ID, err.Error())
				switch {
				case errors.Is(err, inventory.ErrAlreadyRefunded):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, inventory.ErrTryAgain):
					ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				case errors.Is(err, gorm.ErrRecordNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": "sale does not exist"})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
