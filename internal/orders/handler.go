package orders

import (
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

type OrderItemRequest struct {
	ProductID    string `json:"productId"`
	Qty          int64  `json:"qty"`
	PriceAtOrder int64  `json:"priceAtOrder"`
}

type CreateOrderRequest struct {
	LocationID *string            `json:"locationId"`
	Table      *string            `json:"table"`
	Items      []OrderItemRequest `json:"items"`
}

type UpdateStatusRequest struct {
	Status   string           `json:"status"`
	Payments []models.Payment `json:"payments"`
}

// POST /api/orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz sipariş verisi")
		}

		// şubeye bağlı kullanıcı başka şubeye sipariş açamaz
		loc := body.LocationID
		if actor.LocationID != nil {
			loc = actor.LocationID
		}

		items := make([]ItemInput, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, ItemInput{
				ProductID:    it.ProductID,
				Qty:          it.Qty,
				PriceAtOrder: it.PriceAtOrder,
			})
		}

		order, err := svc.CreateOrder(c.UserContext(), CreateOrderCommand{
			LocationID: loc,
			Table:      body.Table,
			Items:      items,
			Actor:      actor,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// GET /api/orders?status=&dateKey=&locationId=
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		f := ListFilter{
			DateKey: c.Query("dateKey"),
			Status:  c.Query("status"),
		}
		if loc := c.Query("locationId"); loc != "" {
			f.LocationID = &loc
		}

		orders, err := svc.ListOrders(c.UserContext(), actor, f)
		if err != nil {
			return err
		}
		if orders == nil {
			orders = []models.Order{}
		}
		return c.JSON(orders)
	}
}

// GET /api/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		order, err := svc.GetOrder(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(order)
	}
}

// PATCH /api/orders/:id/status
func UpdateOrderStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz durum verisi")
		}

		order, err := svc.UpdateStatus(c.UserContext(), UpdateStatusCommand{
			OrderID:  c.Params("id"),
			Status:   body.Status,
			Payments: body.Payments,
			Actor:    actor,
		})
		if err != nil {
			return err
		}
		return c.JSON(order)
	}
}

// GET /api/orders/:id/adjustments
func OrderAdjustmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		adjs, err := svc.Adjustments(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return err
		}
		if adjs == nil {
			adjs = []models.StockAdjustment{}
		}
		return c.JSON(adjs)
	}
}
