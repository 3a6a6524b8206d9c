package audit

import (
	"context"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/gofiber/fiber/v2"
)

type AuditLogResponse struct {
	ID          string             `json:"id"`
	CreatedAt   string             `json:"createdAt"`
	LocationID  *string            `json:"locationId"`
	UserID      string             `json:"userId"`
	UserName    string             `json:"userName"`
	EntityType  string             `json:"entityType"`
	EntityID    string             `json:"entityId"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	IsUndone    bool               `json:"isUndone"`
	UndoneBy    *string            `json:"undoneBy"`
	UndoneAt    *string            `json:"undoneAt"`
}

func toResponse(l models.AuditLog) AuditLogResponse {
	var undoneAt *string
	if l.UndoneAt != nil {
		s := l.UndoneAt.Format("2006-01-02 15:04:05")
		undoneAt = &s
	}
	return AuditLogResponse{
		ID:          l.ID,
		CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
		LocationID:  l.LocationID,
		UserID:      l.UserID,
		UserName:    l.UserName,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		Action:      l.Action,
		Description: l.Description,
		IsUndone:    l.IsUndone,
		UndoneBy:    l.UndoneBy,
		UndoneAt:    undoneAt,
	}
}

// GET /api/audit-logs?entityType=product&entityId=...&userId=...&locationId=...
func ListAuditLogsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		// admin query'den şube seçebilir, diğerleri kendi şubesi
		var requested *string
		if loc := c.Query("locationId"); loc != "" {
			requested = &loc
		}

		filter := store.AuditLogFilter{
			LocationID: actor.ScopeLocation(requested),
			UserID:     c.Query("userId"),
			EntityType: c.Query("entityType"),
			EntityID:   c.Query("entityId"),
		}

		var logs []models.AuditLog
		err = st.RunInTx(c.UserContext(), func(ctx context.Context, tx store.Tx) error {
			var err error
			logs, err = tx.ListAuditLogs(ctx, filter)
			return err
		})
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, toResponse(l))
		}
		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		undoLog, err := Undo(c.UserContext(), st, actor, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "İşlem başarıyla geri alındı",
			"log":     toResponse(*undoLog),
		})
	}
}
