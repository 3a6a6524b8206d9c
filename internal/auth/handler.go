package auth

import (
	"errors"
	"time"

	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

const refreshCookiePath = "/api/auth"

type RegisterRequest struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	Role       models.UserRole `json:"role"`
	LocationID *string         `json:"locationId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       models.UserRole `json:"role"`
	LocationID *string         `json:"locationId"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, LocationID: u.LocationID}
}

// CookieSettings - refresh token cookie ayarları
type CookieSettings struct {
	Name   string
	Secure bool
}

func setRefreshCookie(c *fiber.Ctx, cs CookieSettings, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cs.Name,
		Value:    value,
		Path:     refreshCookiePath,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cs.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearRefreshCookie(c *fiber.Ctx, cs CookieSettings) {
	c.Cookie(&fiber.Cookie{
		Name:     cs.Name,
		Value:    "",
		Path:     refreshCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cs.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func sessionResponse(sess *Session) fiber.Map {
	return fiber.Map{
		"accessToken": sess.AccessToken,
		"expiresIn":   int64(sess.ExpiresIn.Seconds()),
		"user":        toUserResponse(sess.User),
	}
}

// POST /api/auth/bootstrap-admin (sadece hiç admin yokken)
func BootstrapAdminHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		user, err := svc.BootstrapAdmin(c.UserContext(), RegisterInput{
			Name:     body.Name,
			Email:    body.Email,
			Password: body.Password,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// POST /api/auth/register (admin, manager)
func RegisterHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		user, err := svc.Register(c.UserContext(), actor, RegisterInput{
			Name:       body.Name,
			Email:      body.Email,
			Password:   body.Password,
			Role:       body.Role,
			LocationID: body.LocationID,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

func LoginHandler(svc *Service, cs CookieSettings) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		sess, err := svc.Login(c.UserContext(), body.Email, body.Password, c.IP())
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				return fiber.NewError(fiber.StatusUnauthorized, "Email veya şifre hatalı")
			}
			return err
		}

		setRefreshCookie(c, cs, sess.RefreshToken.Token, sess.RefreshToken.ExpiresAt)
		return c.JSON(sessionResponse(sess))
	}
}

func RefreshTokenHandler(svc *Service, cs CookieSettings) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cs.Name)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token eksik")
		}
		sess, err := svc.Refresh(c.UserContext(), token, c.IP())
		if err != nil {
			if errors.Is(err, ErrInvalidRefreshToken) {
				clearRefreshCookie(c, cs)
				return fiber.NewError(fiber.StatusUnauthorized, "Refresh token geçersiz veya süresi dolmuş")
			}
			return err
		}
		setRefreshCookie(c, cs, sess.RefreshToken.Token, sess.RefreshToken.ExpiresAt)
		return c.JSON(sessionResponse(sess))
	}
}

func LogoutHandler(svc *Service, cs CookieSettings) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Logout(c.UserContext(), c.Cookies(cs.Name), c.IP()); err != nil {
			return err
		}
		clearRefreshCookie(c, cs)
		return c.JSON(fiber.Map{"message": "Çıkış yapıldı"})
	}
}

func MeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFromCtx(c)
		if err != nil {
			return err
		}
		user, location, err := svc.Me(c.UserContext(), actor.UserID)
		if err != nil {
			return err
		}

		response := fiber.Map{"user": toUserResponse(user)}
		if location != nil {
			response["location"] = fiber.Map{
				"id":      location.ID,
				"name":    location.Name,
				"address": location.Address,
				"phone":   location.Phone,
			}
		}
		return c.JSON(response)
	}
}
