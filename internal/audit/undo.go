package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"
)

// Undo reverts the change recorded by audit log id and appends an undo entry, all in one
// transaction. Only product and location entries can be undone; stock moves are reverted
// with a new adjustment instead.
func Undo(ctx context.Context, st store.Store, actor domain.Actor, id string) (*models.AuditLog, error) {
	var undoLog *models.AuditLog
	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		log, err := tx.AuditLogByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: audit log %s", domain.ErrNotFound, id)
			}
			return err
		}

		if err := canUndo(actor, log); err != nil {
			return err
		}
		if log.IsUndone {
			return fmt.Errorf("%w: already undone", domain.ErrConflict)
		}
		if log.Action == models.AuditActionUndo {
			return fmt.Errorf("%w: undo entries cannot be undone", domain.ErrConflict)
		}

		var before, after any
		switch log.EntityType {
		case EntityProduct:
			before, after, err = undoProduct(ctx, tx, log)
		case EntityLocation:
			before, after, err = undoLocation(ctx, tx, log)
		case EntityStockItem:
			return fmt.Errorf("%w: stock changes are reverted with an adjustment", domain.ErrConflict)
		default:
			return fmt.Errorf("%w: %s entries cannot be undone", domain.ErrConflict, log.EntityType)
		}
		if err != nil {
			return err
		}

		// aynı kayıt iki kez geri alınamaz
		ok, err := tx.MarkAuditLogUndone(ctx, log.ID, actor.UserID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: already undone", domain.ErrConflict)
		}

		undoLog = &models.AuditLog{}
		return writeInto(ctx, tx, undoLog, LogOptions{
			LocationID:  log.LocationID,
			Actor:       actor,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Action:      models.AuditActionUndo,
			Description: "Geri alındı: " + log.Description,
			Before:      before,
			After:       after,
		})
	})
	if err != nil {
		return nil, err
	}
	return undoLog, nil
}

// Admin her şeyi, manager sadece kendi şubesinin ürün kayıtlarını geri alabilir.
func canUndo(actor domain.Actor, log *models.AuditLog) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleManager:
		if log.EntityType == EntityLocation {
			return fmt.Errorf("%w: only admins can undo location changes", domain.ErrForbidden)
		}
		if log.LocationID == nil || !domain.SameLocation(log.LocationID, actor.LocationID) {
			return fmt.Errorf("%w: entry belongs to another location", domain.ErrForbidden)
		}
		return nil
	}
	return domain.ErrForbidden
}

func decodeBefore(log *models.AuditLog, v any) error {
	if log.BeforeData == "" || log.BeforeData == "null" {
		return fmt.Errorf("%w: entry has no previous state", domain.ErrConflict)
	}
	if err := json.Unmarshal([]byte(log.BeforeData), v); err != nil {
		return fmt.Errorf("audit log %s önceki hali okunamadı: %w", log.ID, err)
	}
	return nil
}

// Ürünler silinmez: create geri alınınca ürün pasife alınır, update/delete önceki hale döner.
func undoProduct(ctx context.Context, tx store.Tx, log *models.AuditLog) (any, any, error) {
	current, err := tx.ProductByID(ctx, log.EntityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: product %s no longer exists", domain.ErrConflict, log.EntityID)
		}
		return nil, nil, err
	}
	prev := *current

	switch log.Action {
	case models.AuditActionCreate:
		current.Active = false
	case models.AuditActionUpdate, models.AuditActionDelete:
		var restored models.Product
		if err := decodeBefore(log, &restored); err != nil {
			return nil, nil, err
		}
		if err := checkRestoredRecipe(ctx, tx, restored); err != nil {
			return nil, nil, err
		}
		restored.ID = current.ID
		restored.CreatedAt = current.CreatedAt
		*current = restored
	default:
		return nil, nil, fmt.Errorf("%w: action %s cannot be undone", domain.ErrConflict, log.Action)
	}

	if err := tx.SaveProduct(ctx, current); err != nil {
		return nil, nil, err
	}
	return prev, current, nil
}

// checkRestoredRecipe - eski reçetedeki stok kalemleri hâlâ aynı şubede olmalı
func checkRestoredRecipe(ctx context.Context, tx store.Tx, p models.Product) error {
	if p.LocationID != nil {
		if _, err := tx.LocationByID(ctx, *p.LocationID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: location %s no longer exists", domain.ErrConflict, *p.LocationID)
			}
			return err
		}
	}
	for _, ing := range p.Ingredients {
		item, err := tx.StockItemByID(ctx, ing.StockItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: ingredient %s no longer exists", domain.ErrConflict, ing.StockItemID)
			}
			return err
		}
		if !domain.SameLocation(item.LocationID, p.LocationID) {
			return fmt.Errorf("%w: ingredient %s moved to another location", domain.ErrConflict, item.Name)
		}
	}
	return nil
}

// Şubeler de silinmez, sadece pasife alınır.
func undoLocation(ctx context.Context, tx store.Tx, log *models.AuditLog) (any, any, error) {
	current, err := tx.LocationByID(ctx, log.EntityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: location %s no longer exists", domain.ErrConflict, log.EntityID)
		}
		return nil, nil, err
	}
	prev := *current

	switch log.Action {
	case models.AuditActionCreate:
		current.Active = false
	case models.AuditActionUpdate, models.AuditActionDelete:
		var restored models.Location
		if err := decodeBefore(log, &restored); err != nil {
			return nil, nil, err
		}
		restored.ID = current.ID
		restored.CreatedAt = current.CreatedAt
		*current = restored
	default:
		return nil, nil, fmt.Errorf("%w: action %s cannot be undone", domain.ErrConflict, log.Action)
	}

	if err := tx.SaveLocation(ctx, current); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, nil, fmt.Errorf("%w: location name %q is taken", domain.ErrConflict, current.Name)
		}
		return nil, nil, err
	}
	return prev, current, nil
}
