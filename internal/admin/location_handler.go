package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/gofiber/fiber/v2"
)

const defaultCountry = "France"

type LocationRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	Country *string `json:"country"`
	Phone   *string `json:"phone"` // Opsiyonel
	Active  *bool   `json:"active"`
}

func (r LocationRequest) apply(l *models.Location) error {
	if r.Name != nil {
		l.Name = strings.TrimSpace(*r.Name)
	}
	if r.Address != nil {
		l.Address = strings.TrimSpace(*r.Address)
	}
	if r.City != nil {
		l.City = strings.TrimSpace(*r.City)
	}
	if r.Country != nil && strings.TrimSpace(*r.Country) != "" {
		l.Country = strings.TrimSpace(*r.Country)
	}
	if r.Phone != nil {
		l.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.Active != nil {
		l.Active = *r.Active
	}
	if l.Name == "" {
		return domain.Invalidf("location name is required")
	}
	return nil
}

func duplicateName(err error, name string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: location %q already exists", domain.ErrConflict, name)
	}
	return err
}

func locationByID(ctx context.Context, tx store.Tx, id string) (*models.Location, error) {
	l, err := tx.LocationByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: location %s", domain.ErrNotFound, id)
	}
	return l, err
}

// ----------------------------------------
// ŞUBE (LOCATION) CRUD - sadece admin
// ----------------------------------------

// POST /api/locations
func CreateLocationHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body LocationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		loc := models.Location{Country: defaultCountry, Active: true}
		if err := body.apply(&loc); err != nil {
			return err
		}

		err = st.RunInTx(c.UserContext(), func(ctx context.Context, tx store.Tx) error {
			if err := tx.CreateLocation(ctx, &loc); err != nil {
				return duplicateName(err, loc.Name)
			}
			return audit.WriteLog(ctx, tx, audit.LogOptions{
				LocationID:  &loc.ID,
				Actor:       actor,
				EntityType:  audit.EntityLocation,
				EntityID:    loc.ID,
				Action:      models.AuditActionCreate,
				Description: "Şube oluşturuldu: " + loc.Name,
				After:       loc,
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	}
}

// GET /api/locations
func ListLocationsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var locations []models.Location
		err := st.RunInTx(c.UserContext(), func(ctx context.Context, tx store.Tx) error {
			var err error
			locations, err = tx.ListLocations(ctx)
			return err
		})
		if err != nil {
			return err
		}
		if locations == nil {
			locations = []models.Location{}
		}
		return c.JSON(locations)
	}
}

// GET /api/locations/:id
func GetLocationHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var loc *models.Location
		err := st.RunInTx(c.UserContext(), func(ctx context.Context, tx store.Tx) error {
			var err error
			loc, err = locationByID(ctx, tx, c.Params("id"))
			return err
		})
		if err != nil {
			return err
		}
		return c.JSON(loc)
	}
}

// PUT /api/locations/:id
func UpdateLocationHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body LocationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		var loc *models.Location
		err = st.RunInTx(c.UserContext(), func(ctx context.Context, tx store.Tx) error {
			var err error
			loc, err = locationByID(ctx, tx, c.Params("id"))
			if err != nil {
				return err
			}
			before := *loc
			if err := body.apply(loc); err != nil {
				return err
			}
			if err := tx.SaveLocation(ctx, loc); err != nil {
				return duplicateName(err, loc.Name)
			}
			return audit.WriteLog(ctx, tx, audit.LogOptions{
				LocationID:  &loc.ID,
				Actor:       actor,
				EntityType:  audit.EntityLocation,
				EntityID:    loc.ID,
				Action:      models.AuditActionUpdate,
				Description: "Şube güncellendi: " + loc.Name,
				Before:      before,
				After:       loc,
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(loc)
	}
}

// DELETE /api/locations/:id - şube silinmez, pasife alınır (siparişler ve stok geçmişi korunur)
func DeleteLocationHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		err = st.RunInTx(c.UserContext(), func(ctx context.Context, tx store.Tx) error {
			loc, err := locationByID(ctx, tx, c.Params("id"))
			if err != nil {
				return err
			}
			if !loc.Active {
				return nil
			}
			before := *loc
			loc.Active = false
			if err := tx.SaveLocation(ctx, loc); err != nil {
				return err
			}
			return audit.WriteLog(ctx, tx, audit.LogOptions{
				LocationID:  &loc.ID,
				Actor:       actor,
				EntityType:  audit.EntityLocation,
				EntityID:    loc.ID,
				Action:      models.AuditActionDelete,
				Description: "Şube pasife alındı: " + loc.Name,
				Before:      before,
				After:       loc,
			})
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
