package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	refreshTokenBytes = 40
	minPasswordLength = 8
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("refresh token expired or revoked")
	ErrAdminExists         = errors.New("an admin already exists")
)

type Settings struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type Service struct {
	store    store.Store
	settings Settings
	log      *zap.Logger
	now      func() time.Time
	cost     int
}

func NewService(st store.Store, settings Settings, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, settings: settings, log: log, now: time.Now, cost: bcrypt.DefaultCost}
}

// Session is what login and refresh hand back to the client.
type Session struct {
	AccessToken  string
	ExpiresIn    time.Duration
	RefreshToken *models.RefreshToken
	User         *models.User
}

type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Role       models.UserRole
	LocationID *string
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (in *RegisterInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return domain.Invalidf("name, email and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return domain.Invalidf("email is not valid")
	}
	if len(in.Password) < minPasswordLength {
		return domain.Invalidf("password must be at least %d characters", minPasswordLength)
	}
	if in.Role == "" {
		in.Role = models.RoleWaiter
	}
	if !in.Role.Valid() {
		return domain.Invalidf("unknown role %q", in.Role)
	}
	return nil
}

// BootstrapAdmin creates the first admin. It refuses once any admin exists.
func (s *Service) BootstrapAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Role = models.RoleAdmin
	in.LocationID = nil
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("şifre hashlenemedi: %w", err)
	}

	var user *models.User
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		n, err := tx.CountUsersByRole(ctx, models.RoleAdmin)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %w", domain.ErrForbidden, ErrAdminExists)
		}
		user = &models.User{Name: in.Name, Email: in.Email, PasswordHash: string(hash), Role: models.RoleAdmin, Active: true}
		return createUser(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("admin bootstrapped", zap.String("user_id", user.ID))
	return user, nil
}

// Register creates a user on behalf of an admin or manager. Managers can only add
// staff to their own location.
func (s *Service) Register(ctx context.Context, actor domain.Actor, in RegisterInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleManager:
		if in.Role == models.RoleAdmin {
			return nil, fmt.Errorf("%w: managers cannot create admins", domain.ErrForbidden)
		}
		in.LocationID = actor.LocationID
	default:
		return nil, domain.ErrForbidden
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("şifre hashlenemedi: %w", err)
	}

	var user *models.User
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if in.LocationID != nil {
			if _, err := tx.LocationByID(ctx, *in.LocationID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return domain.Invalidf("unknown location %s", *in.LocationID)
				}
				return err
			}
		}
		user = &models.User{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: string(hash),
			Role:         in.Role,
			LocationID:   in.LocationID,
			Active:       true,
		}
		return createUser(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func createUser(ctx context.Context, tx store.Tx, user *models.User) error {
	if _, err := tx.UserByEmail(ctx, user.Email); err == nil {
		return fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := tx.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (s *Service) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	email = normalizeEmail(email)
	var sess *Session
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		user, err := tx.UserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if !user.Active {
			return ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		sess, err = s.issue(ctx, tx, user, ip)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Refresh rotates the refresh token: the presented one is revoked and replaced.
func (s *Service) Refresh(ctx context.Context, token, ip string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidRefreshToken
	}
	var sess *Session
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		stored, err := tx.RefreshTokenByToken(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}
		now := s.now().UTC()
		if !stored.IsActive(now) {
			return ErrInvalidRefreshToken
		}
		user, err := tx.UserByID(ctx, stored.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}
		if !user.Active {
			return ErrInvalidRefreshToken
		}

		sess, err = s.issue(ctx, tx, user, ip)
		if err != nil {
			return err
		}
		stored.RevokedAt = &now
		stored.RevokedByIP = ip
		stored.ReplacedByToken = sess.RefreshToken.Token
		return tx.SaveRefreshToken(ctx, stored)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout revokes the token if it is still active. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token, ip string) error {
	if token == "" {
		return nil
	}
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		stored, err := tx.RefreshTokenByToken(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		if stored.RevokedAt != nil {
			return nil
		}
		now := s.now().UTC()
		stored.RevokedAt = &now
		stored.RevokedByIP = ip
		return tx.SaveRefreshToken(ctx, stored)
	})
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, *models.Location, error) {
	var (
		user     *models.User
		location *models.Location
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		user, err = tx.UserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
			}
			return err
		}
		if user.LocationID != nil {
			location, err = tx.LocationByID(ctx, *user.LocationID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return user, location, nil
}

func (s *Service) issue(ctx context.Context, tx store.Tx, user *models.User, ip string) (*Session, error) {
	now := s.now().UTC()
	access, err := GenerateToken(s.settings.JWTSecret, user, s.settings.AccessTokenTTL, now)
	if err != nil {
		return nil, fmt.Errorf("token oluşturulamadı: %w", err)
	}
	raw, err := randomToken()
	if err != nil {
		return nil, err
	}
	rt := &models.RefreshToken{
		Token:       raw,
		UserID:      user.ID,
		ExpiresAt:   now.Add(s.settings.RefreshTokenTTL),
		CreatedByIP: ip,
		CreatedAt:   now,
	}
	if err := tx.CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("refresh token kaydedilemedi: %w", err)
	}
	return &Session{AccessToken: access, ExpiresIn: s.settings.AccessTokenTTL, RefreshToken: rt, User: user}, nil
}

func randomToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("refresh token üretilemedi: %w", err)
	}
	return hex.EncodeToString(b), nil
}
