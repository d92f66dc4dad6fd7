package cli

import (
	"context"
	"fmt"
	"strings"

	"lojaonline/internal/config"
	"lojaonline/internal/database"
	"lojaonline/internal/models"
	"lojaonline/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// InitDBOptions holds flags for the initdb command.
type InitDBOptions struct {
	*RootOptions
	Catalog  string
	NoSeed   bool
	Refresh  bool
	HashCost int
}

// NewInitDBCommand creates the initdb command.
func NewInitDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitDBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create the schema and seed demo data",
		Long: `Create the database schema and seed the catalog and the test customer.

Products are only inserted into an empty catalog unless --refresh is
given, which updates products with the same name and adds the rest. The
test customer
teste@email.com (password 654321) is created unless it already exists.

Example:
  loja initdb
  loja initdb --catalog ./catalog.yaml
  loja initdb --catalog ./catalog.yaml --refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			return runInitDB(cmd.Context(), cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "YAML file with the products to seed")
	cmd.Flags().BoolVar(&opts.NoSeed, "schema-only", false, "only apply the schema")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "update existing products by name and add new ones")
	cmd.Flags().IntVar(&opts.HashCost, "hash-cost", bcrypt.DefaultCost, "bcrypt cost for the test customer")

	return cmd
}

func runInitDB(ctx context.Context, cmd *cobra.Command, cfg config.Config, opts *InitDBOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.NewDatabase(ctx, strings.ToLower(cfg.Database.Driver), cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.NoSeed {
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	}

	products, err := loadCatalog(opts.Catalog)
	if err != nil {
		return err
	}
	if opts.Refresh {
		created, updated, err := db.SyncCatalog(ctx, products)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "catalog synced: %d created, %d updated\n", created, updated)
		products = nil
	}

	hash, err := services.HashPassword(TestCustomerPassword, opts.HashCost)
	if err != nil {
		return fmt.Errorf("hash test customer password: %w", err)
	}
	customer := &models.Customer{
		Name:         TestCustomerName,
		Email:        TestCustomerEmail,
		PasswordHash: hash,
		Phone:        TestCustomerPhone,
	}
	if err := db.Seed(ctx, products, customer); err != nil {
		return err
	}

	count, err := db.CountProducts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database ready: %d products, test customer %s\n", count, TestCustomerEmail)
	return nil
}
