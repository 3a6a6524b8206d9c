package inventory

import (
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/gofiber/fiber/v2"
)

type ProductRequest struct {
	Name        *string              `json:"name"`
	SKU         *string              `json:"sku"`
	Description *string              `json:"description"`
	Category    *string              `json:"category"`
	Price       *int64               `json:"price"`
	Ingredients *[]models.Ingredient `json:"ingredients"`
	Variants    *[]models.Variant    `json:"variants"`
	TrackStock  *bool                `json:"trackStock"`
	LocationID  *string              `json:"locationId"` // sadece admin
}

func (r ProductRequest) input() ProductInput {
	return ProductInput{
		Name:        r.Name,
		SKU:         r.SKU,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Ingredients: r.Ingredients,
		Variants:    r.Variants,
		TrackStock:  r.TrackStock,
		LocationID:  r.LocationID,
	}
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}

// GET /api/products?locationId=&category=&includeInactive=true
func ListProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		products, err := svc.ListProducts(c.UserContext(), actor, store.ProductFilter{
			LocationID:      optionalQuery(c, "locationId"),
			Category:        c.Query("category"),
			IncludeInactive: c.QueryBool("includeInactive", false),
		})
		if err != nil {
			return err
		}
		if products == nil {
			products = []models.Product{}
		}
		return c.JSON(products)
	}
}

// GET /api/products/:id
func GetProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		p, err := svc.GetProduct(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// POST /api/products (admin, manager)
func CreateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p, err := svc.CreateProduct(c.UserContext(), actor, body.input())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id (admin, manager)
func UpdateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p, err := svc.UpdateProduct(c.UserContext(), actor, c.Params("id"), body.input())
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// DELETE /api/products/:id (admin) - ürün pasife alınır, geçmiş siparişler bozulmaz
func DeleteProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteProduct(c.UserContext(), actor, c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
