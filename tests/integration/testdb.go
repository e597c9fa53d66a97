// Package integration runs the workflows against a real PostgreSQL started
// with testcontainers and migrated with the embedded schema.
package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/infrastructure/migration"
	"github.com/pharmanet/backend/internal/infrastructure/persistence"
	"github.com/pharmanet/backend/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const templateDB = "pharmanet_template"

// server is the PostgreSQL container shared by every test in the package.
// Each test gets its own database cloned from the migrated template.
var server struct {
	once      sync.Once
	err       error
	container *tcpostgres.PostgresContainer
	admin     *sql.DB
	baseDSN   string
}

// TestDB is one test's private database
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewTestDB clones a fresh migrated database for t. Skipped with -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker")
	}
	server.once.Do(func() { server.err = startServer(context.Background()) })
	require.NoError(t, server.err, "start postgres")

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err := server.admin.Exec(fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", name, templateDB))
	require.NoError(t, err, "clone template database")

	db, err := gorm.Open(gormpostgres.Open(dsnFor(name)), &gorm.Config{Logger: gormLogger()})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)

	t.Cleanup(func() {
		_ = sqlDB.Close()
		if _, err := server.admin.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", name)); err != nil {
			t.Logf("drop %s: %v", name, err)
		}
	})
	return &TestDB{DB: db, t: t}
}

func startServer(ctx context.Context) error {
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		return err
	}
	server.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return err
	}
	server.baseDSN = dsn
	if server.admin, err = sql.Open("postgres", dsn); err != nil {
		return err
	}
	if _, err := server.admin.Exec("CREATE DATABASE " + templateDB); err != nil {
		return err
	}

	tmpl, err := sql.Open("postgres", dsnFor(templateDB))
	if err != nil {
		return err
	}
	m, err := migration.Open(tmpl, migrations.FS, zap.NewNop())
	if err != nil {
		_ = tmpl.Close()
		return err
	}
	// Close releases tmpl too; a template must have no open sessions
	return errors.Join(m.Up(), m.Close())
}

// dsnFor swaps the database name in the container's connection string
func dsnFor(database string) string {
	return strings.Replace(server.baseDSN, "/postgres?", "/"+database+"?", 1)
}

func gormLogger() logger.Interface {
	if os.Getenv("TEST_DB_DEBUG") != "" {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Silent)
}

func stopServer() {
	if server.admin != nil {
		_ = server.admin.Close()
	}
	if server.container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = server.container.Terminate(ctx)
	}
}

// CreateAccount inserts an account; stock items and orders reference it
func (tdb *TestDB) CreateAccount(name string, role identity.Role) identity.Caller {
	tdb.t.Helper()

	email := uuid.NewString()[:8] + "@example.com"
	acc, err := identity.NewAccount(name, email, "correct-horse", role)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormAccountRepository(tdb.DB).Save(context.Background(), acc))
	return identity.NewCaller(acc.ID, role)
}

// CreateStockItem inserts an item with the given balance
func (tdb *TestDB) CreateStockItem(owner uuid.UUID, name string, qty int, price string) *inventory.StockItem {
	tdb.t.Helper()

	item, err := inventory.NewStockItem(owner, name, qty, inventory.StockItemDetails{
		Presentation: "Box of 20",
		PublicPrice:  decimal.RequireFromString(price),
	})
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormStockItemRepository(tdb.DB).Save(context.Background(), item))
	return item
}

// OnHand reads an item's current balance
func (tdb *TestDB) OnHand(id uuid.UUID) int {
	tdb.t.Helper()

	var qty int
	require.NoError(tdb.t, tdb.DB.Raw("SELECT quantity_on_hand FROM stock_items WHERE id = ?", id).Scan(&qty).Error)
	return qty
}
