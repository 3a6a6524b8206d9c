package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// systemActor runs scheduled exports across every location.
var systemActor = domain.Actor{Name: "scheduler", Role: models.RoleAdmin}

type Exporter struct {
	svc *Service
	dir string
	tz  *time.Location
	log *zap.Logger
	now func() time.Time
}

func NewExporter(svc *Service, dir string, tz *time.Location, log *zap.Logger) *Exporter {
	if tz == nil {
		tz = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{svc: svc, dir: dir, tz: tz, log: log, now: time.Now}
}

// ExportDay writes the workbook for the calendar day containing day and returns its path.
func (e *Exporter) ExportDay(ctx context.Context, day time.Time) (string, error) {
	d := day.In(e.tz)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, e.tz)
	to := from.AddDate(0, 0, 1)

	sales, err := e.svc.Sales(ctx, systemActor, nil, from, to)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("satis-%s.xlsx", from.Format(dayLayout)))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if err := WriteWorkbook(f, sales); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}

	e.log.Info("daily sales report written",
		zap.String("path", path),
		zap.Int("orders", len(sales.Orders)),
		zap.Int64("revenue", sales.Revenue))
	return path, nil
}

// exportYesterday is the scheduled job body.
func (e *Exporter) exportYesterday() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := e.ExportDay(ctx, e.now().In(e.tz).AddDate(0, 0, -1)); err != nil {
		e.log.Error("daily sales report failed", zap.Error(err))
	}
}

// Schedule registers the daily export at "HH:MM" in the exporter's timezone.
// The caller starts and stops the returned scheduler.
func (e *Exporter) Schedule(at string) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(e.tz)
	if _, err := s.Every(1).Day().At(at).Do(e.exportYesterday); err != nil {
		return nil, fmt.Errorf("schedule daily report at %q: %w", at, err)
	}
	return s, nil
}
