package inventory

import (
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/gofiber/fiber/v2"
)

type CreateAdjustmentRequest struct {
	StockItemID string `json:"stockItemId"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason"` // ör: "teslimat", "fire", "sayım farkı"
}

// POST /api/adjustments (admin, manager)
func CreateAdjustmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateAdjustmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		adj, err := svc.Adjust(c.UserContext(), actor, AdjustmentInput{
			StockItemID: body.StockItemID,
			Delta:       body.Delta,
			Reason:      body.Reason,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(adj)
	}
}

// GET /api/adjustments?stockItemId=&orderId=&locationId=
func ListAdjustmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		adjs, err := svc.ListAdjustments(c.UserContext(), actor, store.AdjustmentFilter{
			LocationID:  optionalQuery(c, "locationId"),
			StockItemID: c.Query("stockItemId"),
			OrderID:     c.Query("orderId"),
		})
		if err != nil {
			return err
		}
		if adjs == nil {
			adjs = []models.StockAdjustment{}
		}
		return c.JSON(adjs)
	}
}
