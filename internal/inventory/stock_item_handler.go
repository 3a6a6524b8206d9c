package inventory

import (
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/gofiber/fiber/v2"
)

type StockItemRequest struct {
	Name       *string `json:"name"`
	ProductID  *string `json:"productId"`
	Quantity   *int64  `json:"quantity"` // sadece oluştururken
	Unit       *string `json:"unit"`
	TrackStock *bool   `json:"trackStock"`
	LocationID *string `json:"locationId"` // sadece admin
}

func (r StockItemRequest) input() StockItemInput {
	return StockItemInput{
		Name:       r.Name,
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		Unit:       r.Unit,
		TrackStock: r.TrackStock,
		LocationID: r.LocationID,
	}
}

// GET /api/stock?locationId=&productId=
func ListStockItemsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		items, err := svc.ListStockItems(c.UserContext(), actor, store.StockItemFilter{
			LocationID: optionalQuery(c, "locationId"),
			ProductID:  c.Query("productId"),
		})
		if err != nil {
			return err
		}
		if items == nil {
			items = []models.StockItem{}
		}
		return c.JSON(items)
	}
}

// GET /api/stock/:id
func GetStockItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		item, err := svc.GetStockItem(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /api/stock (admin, manager)
func CreateStockItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body StockItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		item, err := svc.CreateStockItem(c.UserContext(), actor, body.input())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PUT /api/stock/:id (admin, manager) - miktar buradan değişmez, /api/adjustments kullanılır
func UpdateStockItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body StockItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		item, err := svc.UpdateStockItem(c.UserContext(), actor, c.Params("id"), body.input())
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// DELETE /api/stock/:id (admin)
func DeleteStockItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteStockItem(c.UserContext(), actor, c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
