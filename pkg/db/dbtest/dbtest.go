// Package dbtest opens isolated in-memory sqlite databases carrying the
// engine schema, for repository and service tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
)

// Models lists every table the engine reads or writes.
func Models() []any {
	return []any{
		&models.Company{},
		&models.Item{},
		&models.ItemReplenishment{},
		&models.ItemCost{},
		&models.SupplierPart{},
		&models.MakeMethod{},
		&models.MethodMaterial{},
		&models.MethodOperation{},
		&models.Kanban{},
		&models.Job{},
		&models.JobMakeMethod{},
		&models.JobMaterial{},
		&models.JobOperation{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.StockTransfer{},
		&models.StockTransferLine{},
		&models.ItemLedgerEntry{},
		&models.PickMethod{},
		&models.Sequence{},
		&models.SalesOrderLine{},
		&models.DemandForecast{},
		&models.SuggestedAction{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// Open returns a fresh database named after the test. Each call gets its own
// shared-cache memory file so parallel tests never observe each other.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:mesflow_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// A single connection keeps the memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return conn
}
