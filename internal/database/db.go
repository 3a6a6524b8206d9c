package database

import (
	"fmt"
	"time"

	"restoran-pos/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and runs the schema migration.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB alınamadı: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("veritabanı bağlantısı başarılı, migration tamamlandı")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Location{},
		&models.User{},
		&models.RefreshToken{},
		&models.Product{},
		&models.StockItem{},
		&models.StockAdjustment{},
		&models.SequenceCounter{},
		&models.Order{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	// Direct stock link: bir ürünün aynı şubede tek bir stok kalemi olabilir.
	// NULL location için ayrı partial index gerekiyor (NULL'lar unique index'te farklı sayılır).
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stock_items_product_location
			ON stock_items (product_id, location_id) WHERE product_id IS NOT NULL AND location_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stock_items_product_no_location
			ON stock_items (product_id) WHERE product_id IS NOT NULL AND location_id IS NULL`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index oluşturulamadı: %w", err)
		}
	}
	return nil
}
