package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("order-service")
	require.NoError(t, err)

	assert.Equal(t, "order-service", cfg.ServiceName)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Order.StockWorkers)
	assert.Equal(t, 10*time.Second, cfg.Order.SideEffectTimeout)
	assert.Equal(t, "order_service", cfg.Metrics.Prefix)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "orders.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ORDER_STOCK_WORKERS", "8")
	t.Setenv("ORDER_SIDE_EFFECT_TIMEOUT", "3s")
	t.Setenv("DB_LOG_LEVEL", "silent")

	cfg, err := Load("order-service")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "orders.db", cfg.DB.GetDSN())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Order.StockWorkers)
	assert.Equal(t, 3*time.Second, cfg.Order.SideEffectTimeout)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load("order-service")
	assert.Error(t, err)
}

func TestLoad_RejectsZeroWorkers(t *testing.T) {
	t.Setenv("ORDER_STOCK_WORKERS", "0")

	_, err := Load("order-service")
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	base := DBConfig{
		Host:     "db",
		Port:     "5432",
		User:     "app",
		Password: "pw",
		DBName:   "orders",
		SSLMode:  "disable",
	}

	pg := base
	pg.Driver = DriverPostgres
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=orders sslmode=disable", pg.GetDSN())

	my := base
	my.Driver = DriverMySQL
	my.Port = "3306"
	assert.Equal(t, "app:pw@tcp(db:3306)/orders?charset=utf8mb4&parseTime=True&loc=Local", my.GetDSN())

	explicit := base
	explicit.DSN = "file::memory:"
	assert.Equal(t, "file::memory:", explicit.GetDSN())
}
