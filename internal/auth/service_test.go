package auth

import (
	"context"
	"testing"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"
	"restoran-pos/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := NewService(st, Settings{
		JWTSecret:       testSecret,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}, nil)
	svc.cost = bcrypt.MinCost
	return svc, st
}

func TestBootstrapAdminOnlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	admin, err := svc.BootstrapAdmin(ctx, RegisterInput{Name: "Admin", Email: " Admin@Example.com ", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.NotEqual(t, "supersecret", admin.PasswordHash)

	_, err = svc.BootstrapAdmin(ctx, RegisterInput{Name: "Other", Email: "other@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrAdminExists)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegisterRules(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	locA, locB := "loc-a", "loc-b"
	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateLocation(ctx, &models.Location{ID: locA, Name: "A", Active: true}); err != nil {
			return err
		}
		return tx.CreateLocation(ctx, &models.Location{ID: locB, Name: "B", Active: true})
	})
	require.NoError(t, err)

	admin := domain.Actor{UserID: "a", Role: models.RoleAdmin}
	manager := domain.Actor{UserID: "m", Role: models.RoleManager, LocationID: &locA}
	waiter := domain.Actor{UserID: "w", Role: models.RoleWaiter, LocationID: &locA}

	u, err := svc.Register(ctx, manager, RegisterInput{Name: "Garson", Email: "g@example.com", Password: "password1", LocationID: &locB})
	require.NoError(t, err)
	assert.Equal(t, models.RoleWaiter, u.Role, "default role")
	require.NotNil(t, u.LocationID)
	assert.Equal(t, locA, *u.LocationID, "manager cannot place staff in another location")

	_, err = svc.Register(ctx, manager, RegisterInput{Name: "X", Email: "x@example.com", Password: "password1", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Register(ctx, waiter, RegisterInput{Name: "Y", Email: "y@example.com", Password: "password1"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Register(ctx, admin, RegisterInput{Name: "Z", Email: "g@example.com", Password: "password1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Register(ctx, admin, RegisterInput{Name: "Z", Email: "z@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Register(ctx, admin, RegisterInput{Name: "Z", Email: "z@example.com", Password: "password1", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	nowhere := "nowhere"
	_, err = svc.Register(ctx, admin, RegisterInput{Name: "Z", Email: "z@example.com", Password: "password1", LocationID: &nowhere})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.BootstrapAdmin(ctx, RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "admin@example.com", "wrong-password", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "supersecret", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := svc.Login(ctx, "ADMIN@example.com", "supersecret", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	assert.Len(t, sess.RefreshToken.Token, 80)

	claims, err := ParseToken(testSecret, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)

	rotated, err := svc.Refresh(ctx, sess.RefreshToken.Token, "127.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken.Token, rotated.RefreshToken.Token)

	_, err = svc.Refresh(ctx, sess.RefreshToken.Token, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "rotated token cannot be reused")

	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken.Token, "127.0.0.1"))
	_, err = svc.Refresh(ctx, rotated.RefreshToken.Token, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.NoError(t, svc.Logout(ctx, "unknown", "127.0.0.1"))
}

func TestRefreshExpired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.BootstrapAdmin(ctx, RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "supersecret"})
	require.NoError(t, err)

	sess, err := svc.Login(ctx, "admin@example.com", "supersecret", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = svc.Refresh(ctx, sess.RefreshToken.Token, "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestMe(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	admin, err := svc.BootstrapAdmin(ctx, RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "supersecret"})
	require.NoError(t, err)

	u, loc, err := svc.Me(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, u.ID)
	assert.Nil(t, loc)

	_, _, err = svc.Me(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
