package report

import (
	"bytes"
	"fmt"
	"time"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/domain"

	"github.com/gofiber/fiber/v2"
)

const (
	dayLayout = "2006-01-02"
	xlsxMIME  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParseRange reads from/to as inclusive calendar days in loc and returns [from, to+1day).
// An empty from defaults to today, an empty to defaults to from.
func ParseRange(fromStr, toStr string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	today := now.In(loc)
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if fromStr != "" {
		t, err := time.ParseInLocation(dayLayout, fromStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, domain.Invalidf("from must be YYYY-MM-DD")
		}
		from = t
	}
	to := from
	if toStr != "" {
		t, err := time.ParseInLocation(dayLayout, toStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, domain.Invalidf("to must be YYYY-MM-DD")
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, domain.Invalidf("to must not be before from")
	}
	return from, to.AddDate(0, 0, 1), nil
}

// GET /api/reports/sales?from=2025-01-01&to=2025-01-31&locationId=
func SalesReportHandler(svc *Service, tz *time.Location) fiber.Handler {
	if tz == nil {
		tz = time.UTC
	}
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		from, to, err := ParseRange(c.Query("from"), c.Query("to"), time.Now(), tz)
		if err != nil {
			return err
		}
		var requested *string
		if loc := c.Query("locationId"); loc != "" {
			requested = &loc
		}

		sales, err := svc.Sales(c.UserContext(), actor, requested, from, to)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := WriteWorkbook(&buf, sales); err != nil {
			return fmt.Errorf("sales workbook: %w", err)
		}

		filename := fmt.Sprintf("satis-%s_%s.xlsx", from.Format(dayLayout), to.AddDate(0, 0, -1).Format(dayLayout))
		c.Set(fiber.HeaderContentType, xlsxMIME)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(buf.Bytes())
	}
}
