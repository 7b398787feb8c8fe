package db

import (
	"context"
	"database/sql"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"ChatDesk/server/migrations"
)

var Pool *pgxpool.Pool

// InitDB connects the global pool and brings the schema up to date.
func InitDB(databaseURL string) {
	ctx := context.Background()

	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	Pool = pool
	log.Println("Connected to database")

	runMigrations(databaseURL)
}

func runMigrations(databaseURL string) {
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		log.Fatalf("Failed to open migration connection: %v", err)
	}
	defer migrationDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set migration dialect: %v", err)
	}

	if err := goose.Up(migrationDB, "."); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied")
}

// SeedBusinessParty makes sure the configured business account exists as a
// party. Safe to run on every startup.
func SeedBusinessParty(ctx context.Context, identifier string) {
	_, err := Pool.Exec(ctx, `
        INSERT INTO parties (identifier, kind, last_activity_at, created_at)
        VALUES ($1, 'account', NOW(), NOW())
        ON CONFLICT (identifier) DO NOTHING
    `, identifier)
	if err != nil {
		log.Fatalf("Failed to seed business party %s: %v", identifier, err)
	}
}
