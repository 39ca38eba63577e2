package main

import (
	"context"
	"time"

	"akppos/internal/auth"
	"akppos/internal/config"
	"akppos/internal/dto"
	"akppos/internal/infra"
	"akppos/internal/model"
	"akppos/internal/repository"
	"akppos/internal/service"

	"github.com/go-extras/cobraflags"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	storeFlag    = "store"
	nameFlag     = "name"
	emailFlag    = "email"
	seedPassFlag = "password"
)

var seedFlags = map[string]cobraflags.Flag{
	storeFlag: &cobraflags.StringFlag{
		Name:  storeFlag,
		Value: "Demo Store",
		Usage: "Store (tenant) name",
	},
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "Demo Admin",
		Usage: "Display name of the admin user",
	},
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Value: "admin@example.com",
		Usage: "Admin login email",
	},
	seedPassFlag: &cobraflags.StringFlag{
		Name:  seedPassFlag,
		Value: "Admin1234",
		Usage: "Admin password",
	},
}

type demoProduct struct {
	name     string
	category string
	price    string
	stock    int
	barcode  string
}

var demoCatalog = []demoProduct{
	{"Sparkling Water 500ml", "Beverages", "1.20", 48, "7790000000011"},
	{"Cola 1.5L", "Beverages", "2.50", 24, "7790000000028"},
	{"Ham Sandwich", "Food", "3.90", 8, "7790000000035"},
	{"Potato Chips", "Snacks", "1.80", 30, "7790000000042"},
	{"Chocolate Bar", "Snacks", "1.10", 5, "7790000000059"},
}

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register a store with an admin user and a small demo catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := infra.NewDatabase(cfg.DatabaseURL, true)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			tx := repository.NewTxRunner(db)
			products := repository.NewProductRepository(db)
			categories := repository.NewCategoryRepository(db)
			ledger := repository.NewInventoryLogRepository(db)
			authSvc := service.NewAuthService(tx, repository.NewUserRepository(db), repository.NewTenantRepository(db),
				repository.NewSettingsRepository(db), auth.NewManager(cfg.JWTSecret, time.Hour))

			pw := seedFlags[seedPassFlag].GetString()
			reg, err := authSvc.Register(ctx, dto.RegisterRequest{
				Name:            seedFlags[nameFlag].GetString(),
				Email:           seedFlags[emailFlag].GetString(),
				Password:        pw,
				ConfirmPassword: pw,
				StoreName:       seedFlags[storeFlag].GetString(),
			})
			if err != nil {
				return err
			}
			admin := auth.Principal{
				UserID:   reg.User.ID,
				Email:    reg.User.Email,
				Role:     model.RoleAdmin,
				TenantID: reg.User.TenantID,
			}

			n, err := seedCatalog(ctx, admin,
				service.NewCategoryService(categories, products),
				service.NewProductService(tx, products, categories, ledger, nil, nil))
			if err != nil {
				return err
			}
			log.Info().
				Str("tenant_id", admin.TenantID.String()).
				Str("email", admin.Email).
				Int("products", n).
				Msg("seed complete")
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, seedFlags)
	return cmd
}

// seedCatalog creates the demo categories and products for the tenant of p.
func seedCatalog(ctx context.Context, p auth.Principal, categories service.CategoryService, products service.ProductService) (int, error) {
	ids := map[string]dto.CategoryResponse{}
	created := 0
	for _, d := range demoCatalog {
		cat, ok := ids[d.category]
		if !ok {
			c, err := categories.Create(ctx, p, dto.CategoryRequest{Name: d.category})
			if err != nil {
				return created, err
			}
			cat = *c
			ids[d.category] = cat
		}
		barcode := d.barcode
		if _, err := products.Create(ctx, p, dto.CreateProductRequest{
			Name:       d.name,
			CategoryID: cat.ID,
			Price:      decimal.RequireFromString(d.price),
			Stock:      d.stock,
			Barcode:    &barcode,
		}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
