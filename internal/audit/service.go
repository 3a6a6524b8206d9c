package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
)

const (
	EntityProduct   = "product"
	EntityStockItem = "stock_item"
	EntityLocation  = "location"
	EntityUser      = "user"
)

type LogOptions struct {
	LocationID  *string
	Actor       domain.Actor
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Writer is the part of store.Tx the audit log needs.
type Writer interface {
	InsertAuditLog(ctx context.Context, l *models.AuditLog) error
}

// WriteLog must be called with the same Tx as the change it describes.
func WriteLog(ctx context.Context, w Writer, opts LogOptions) error {
	return writeInto(ctx, w, &models.AuditLog{}, opts)
}

func writeInto(ctx context.Context, w Writer, log *models.AuditLog, opts LogOptions) error {
	// jsonb için boş string yerine "null" kullanılmalı
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	*log = models.AuditLog{
		LocationID:  opts.LocationID,
		UserID:      opts.Actor.UserID,
		UserName:    opts.Actor.Name,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := w.InsertAuditLog(ctx, log); err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}
	return nil
}
