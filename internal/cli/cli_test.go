package cli

import (
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lojaonline/internal/config"
	"lojaonline/internal/database"
	"lojaonline/internal/events"
	"lojaonline/internal/models"
	"lojaonline/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "initdb", "cert"}, names)
}

func TestInitDB_SeedsCatalogAndTestCustomer(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "loja.db")
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", dbPath)

	for i := 0; i < 2; i++ {
		buf := &bytes.Buffer{}
		cmd := NewRootCommand()
		cmd.SetOut(buf)
		cmd.SetArgs([]string{"initdb", "--hash-cost", "4"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, buf.String(), "8 products")
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, database.DriverSQLite, dbPath)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(demoCatalog), n, "second run does not duplicate products")

	customer, err := services.NewCustomerService(db, nil, nil).Verify(ctx, TestCustomerEmail, TestCustomerPassword)
	require.NoError(t, err)
	assert.Equal(t, TestCustomerName, customer.Name)
}

func TestInitDB_CatalogFile(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
products:
  - name: Caneca
    price: "12.50"
    stock: 3
  - name: Camiseta
    price: "40"
    description: Algodão
`), 0o644))

	products, err := loadCatalog(catalog)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "12.50", products[0].Price.StringFixed(2))
	assert.Equal(t, 0, products[1].Stock)
}

func TestInitDB_RefreshUpdatesExistingProducts(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "loja.db")
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", dbPath)

	run := func(args ...string) string {
		buf := &bytes.Buffer{}
		cmd := NewRootCommand()
		cmd.SetOut(buf)
		cmd.SetArgs(append([]string{"initdb", "--hash-cost", "4"}, args...))
		require.NoError(t, cmd.Execute())
		return buf.String()
	}
	run()

	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
products:
  - name: Caneca Cerâmica
    price: "42.00"
    stock: 3
  - name: Chaveiro
    price: "9.90"
    stock: 50
`), 0o644))

	out := run("--catalog", catalog)
	assert.NotContains(t, out, "catalog synced", "plain seeding leaves a filled catalog alone")

	out = run("--catalog", catalog, "--refresh")
	assert.Contains(t, out, "catalog synced: 1 created, 1 updated")
	assert.Contains(t, out, fmt.Sprintf("%d products", len(demoCatalog)+1))

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, database.DriverSQLite, dbPath)
	require.NoError(t, err)
	defer db.Close()

	products, err := db.ListProducts(ctx)
	require.NoError(t, err)
	for _, p := range products {
		if p.Name == "Caneca Cerâmica" {
			assert.Equal(t, "42.00", p.Price.StringFixed(2))
			assert.Equal(t, 3, p.Stock)
		}
	}
}

func TestProductsFromForms_Invalid(t *testing.T) {
	_, err := productsFromForms(demoCatalog)
	require.NoError(t, err)

	tests := []struct {
		name string
		form models.ProductForm
	}{
		{"missing name", models.ProductForm{Price: "1.00"}},
		{"bad price", models.ProductForm{Name: "Caneca", Price: "dez reais"}},
		{"negative price", models.ProductForm{Name: "Caneca", Price: "-1"}},
		{"negative stock", models.ProductForm{Name: "Caneca", Price: "1", Stock: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := productsFromForms([]models.ProductForm{tt.form})
			assert.Error(t, err)
		})
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := generateSelfSignedCert([]string{"loja.local", "10.0.0.5"})
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"Loja Online"}, parsed.Subject.Organization)
	assert.Contains(t, parsed.DNSNames, "localhost")
	assert.Contains(t, parsed.DNSNames, "loja.local")
	assert.NoError(t, parsed.VerifyHostname("10.0.0.5"))
}

func TestHTTPSRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost:5000/produto/3?x=1", nil)
	httpsRedirect("5443").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://localhost:5443/produto/3?x=1", rec.Header().Get("Location"))
}

func TestNewPublisher_DefaultsToNop(t *testing.T) {
	p, err := newPublisher(config.EventsConfig{Backend: events.BackendNone})
	require.NoError(t, err)
	assert.IsType(t, events.NopPublisher{}, p)

	p, err = newPublisher(config.EventsConfig{Backend: events.BackendKafka, KafkaBrokers: "localhost:9092", KafkaTopic: events.TopicOrderPlaced})
	require.NoError(t, err)
	assert.IsType(t, &events.KafkaPublisher{}, p)
	assert.NoError(t, p.Close())
}

func TestBuildApp_SQLiteInMemorySessions(t *testing.T) {
	cfg := config.Default()
	cfg.GinMode = "test"
	dir := t.TempDir()
	cfg.Database.URL = filepath.Join(dir, "app.db")
	cfg.SecurityLog = filepath.Join(dir, "security.log")

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCertCommand_WritesLoadableFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TLS_CERT_FILE", filepath.Join(dir, "loja.crt"))
	t.Setenv("TLS_KEY_FILE", filepath.Join(dir, "loja.key"))

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"cert", "--host", "192.168.1.133"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "loja.crt")

	cert, err := loadCertificate(filepath.Join(dir, "loja.crt"), filepath.Join(dir, "loja.key"))
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.NoError(t, parsed.VerifyHostname("192.168.1.133"))
}
