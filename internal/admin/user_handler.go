package admin

import (
	"context"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/gofiber/fiber/v2"
)

type UserResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       models.UserRole `json:"role"`
	LocationID *string         `json:"locationId"`
	Active     bool            `json:"active"`
	CreatedAt  string          `json:"createdAt"`
}

// GET /api/users?locationId= (admin tümünü, manager sadece kendi şubesini görür)
func ListUsersHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var requested *string
		if loc := c.Query("locationId"); loc != "" {
			requested = &loc
		}
		scope := actor.ScopeLocation(requested)

		var users []models.User
		err = st.RunInTx(c.UserContext(), func(ctx context.Context, tx store.Tx) error {
			var err error
			users, err = tx.ListUsers(ctx, scope)
			return err
		})
		if err != nil {
			return err
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, UserResponse{
				ID:         u.ID,
				Name:       u.Name,
				Email:      u.Email,
				Role:       u.Role,
				LocationID: u.LocationID,
				Active:     u.Active,
				CreatedAt:  u.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}
