package domain

import "restoran-pos/internal/models"

// Actor - isteği yapan kullanıcı (JWT'den gelir)
type Actor struct {
	UserID     string
	Name       string
	Role       models.UserRole
	LocationID *string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ScopeLocation - admin olmayan kullanıcılar sadece kendi şubelerini görebilir.
// Admin için nil döner (filtre yok) ya da istenen şube kullanılır.
func (a Actor) ScopeLocation(requested *string) *string {
	if a.IsAdmin() {
		return requested
	}
	return a.LocationID
}

// CanAccess - kaydın şubesi kullanıcının kapsamında mı?
func (a Actor) CanAccess(locationID *string) bool {
	if a.IsAdmin() {
		return true
	}
	if a.LocationID == nil {
		return locationID == nil
	}
	return locationID != nil && *locationID == *a.LocationID
}

func SameLocation(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
