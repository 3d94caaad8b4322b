package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/directory"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/seed"
)

func main() {
	cfg := config.Load()
	adminEmail := flag.String("admin-email", cfg.SeedAdminEmail, "bootstrap super admin email")
	adminPassword := flag.String("admin-password", cfg.SeedAdminPassword, "bootstrap super admin password")
	adminName := flag.String("admin-name", "Administrator", "bootstrap super admin full name")
	flag.Parse()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName+"-seed")
	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), time.Minute)
	defer cancel()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close(gdb)

	if err := repo.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	store := repo.New(gdb)
	catalog := rbac.DefaultCatalog()
	if err := seed.Catalog(ctx, store, catalog, rbac.BuiltinRoles()); err != nil {
		log.Fatalf("seed error: %v", err)
	}

	if *adminEmail == "" {
		return
	}
	users := directory.New(store, rbac.NewGraph(catalog, store))
	created, err := seed.Admin(ctx, users, hash.NewBcrypt(cfg.BcryptCost), *adminEmail, *adminPassword, *adminName)
	if err != nil {
		log.Fatalf("seed admin error: %v", err)
	}
	logger.Info("seed finished", "admin_created", created)
}
