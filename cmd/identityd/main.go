package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	identity "github.com/licentra/identity"
)

func main() {
	cfg, err := identity.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.SigningKey == "" {
		log.Fatal("IDENTITY_SIGNING_KEY is required")
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()

	if err := createSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	repo := identity.NewRepositoryManager(db)
	repo.MustValidate()

	if cfg.SuperAdminEmail != "" {
		if _, err := identity.EnsureSuperAdmin(ctx, repo, cfg.SuperAdminEmail, cfg.SuperAdminPassword, nil); err != nil {
			log.Fatalf("seed super admin: %v", err)
		}
	}

	if cfg.MetricsEnabled {
		identity.InitMetrics()
	}

	provider := identity.NewUserProvider(identity.TrackerFromUsers(repo.Users()))
	auther := identity.NewAuthenticator(provider, cfg).
		WithActivitySink(identity.LogActivitySink{})

	guard := identity.NewGuard()

	server := identity.NewServer(auther, repo, guard, cfg).
		WithMailer(identity.PrintMailer{}).
		WithActivitySink(identity.LogActivitySink{}).
		WithBaseURL(cfg.BaseURL)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	go purgeExpiredTokens(ctx, repo)

	log.Printf("identityd listening on %s", cfg.Addr)
	if err := server.Listen(cfg.Addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*identity.User)(nil),
		(*identity.Company)(nil),
		(*identity.Membership)(nil),
		(*identity.ActionToken)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

// purgeExpiredTokens sweeps dead action tokens hourly so the table
// does not grow without bound.
func purgeExpiredTokens(ctx context.Context, repo identity.RepositoryManager) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if n, err := repo.ActionTokens().PurgeExpired(ctx, time.Now().Add(-24*time.Hour)); err != nil {
			log.Printf("purge expired tokens: %v", err)
		} else if n > 0 {
			log.Printf("purged %d expired action tokens", n)
		}
	}
}
