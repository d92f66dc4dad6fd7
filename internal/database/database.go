package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"lojaonline/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrStockConflict = errors.New("stock changed during checkout")
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Database wraps the SQL connection used by the catalog, customer and
// order stores.
type Database struct {
	conn    *sql.DB
	dialect string
}

// NewDatabase opens the database for the given driver and applies the schema.
//
// SQLite databases are opened with immediate transactions, WAL and a single
// connection, so checkout transactions are serialized. PostgreSQL goes through
// the pgx stdlib driver.
func NewDatabase(ctx context.Context, driver, dsn string) (*Database, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case DriverSQLite, "sqlite", "":
		driver = DriverSQLite
		conn, err = sql.Open("sqlite3", sqliteDSN(dsn))
	case DriverPostgres, "pgx":
		driver = DriverPostgres
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &Database{conn: conn, dialect: driver}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
	}

	if err := db.applySchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("Database.NewDatabase - %s database ready", driver)
	return db, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "loja_online.db"
	}
	if strings.Contains(dsn, "_txlock") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_txlock=immediate"
}

func applyPragmas(ctx context.Context, conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (db *Database) applySchema(ctx context.Context) error {
	schema := sqliteSchema
	if db.dialect == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *Database) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *Database) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// DB returns the underlying sql.DB. Prefer the store methods.
func (db *Database) DB() *sql.DB {
	return db.conn
}

// Dialect returns the normalized driver name.
func (db *Database) Dialect() string {
	return db.dialect
}

// WithTx runs fn inside a transaction. The transaction is committed only if
// fn returns nil and rolled back on every other exit path.
func (db *Database) WithTx(ctx context.Context, fn func(tx OrderTx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // no-op after commit

	if err := fn(&Tx{tx: sqlTx, dialect: db.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func rebind(dialect, query string) string {
	if dialect != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *Database) q(query string) string {
	return rebind(db.dialect, query)
}

// isUniqueViolation detects UNIQUE constraint failures for both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// OrderTx is the set of operations the checkout runs atomically.
type OrderTx interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	DecrementStock(ctx context.Context, productID int64, qty int) error
	CreateOrder(ctx context.Context, customerID int64, total decimal.Decimal, token string) (int64, error)
	AddLine(ctx context.Context, orderID, productID int64, qty int, unitPrice decimal.Decimal) error
	RecordPayment(ctx context.Context, orderID int64, amount decimal.Decimal, status string) error
}

// DBInterface lists the store operations used by the services and handlers.
type DBInterface interface {
	// Catalog
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]models.Product, error)
	// Customers
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	// Orders
	WithTx(ctx context.Context, fn func(tx OrderTx) error) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByToken(ctx context.Context, token string) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
	CountOrders(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

var _ DBInterface = (*Database)(nil)
