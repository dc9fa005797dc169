package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "apply the PostgreSQL schema of the record store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Value: "migrations",
				Usage: "directory holding the migration files",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "overrides DATABASE_URL from the config",
				EnvVars: []string{"MIGRATE_DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withMigrate(func(m *migrate.Migrate, _ *cli.Context) error {
					if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("up failed: %w", err)
					}
					fmt.Println("Migrated up successfully")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "roll back all migrations",
				Action: withMigrate(func(m *migrate.Migrate, _ *cli.Context) error {
					if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("down failed: %w", err)
					}
					fmt.Println("Migrated down successfully")
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: withMigrate(func(m *migrate.Migrate, _ *cli.Context) error {
					version, dirty, err := m.Version()
					if err != nil {
						return fmt.Errorf("version failed: %w", err)
					}
					fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
					return nil
				}),
			},
			{
				Name:      "force",
				Usage:     "set the schema version without running migrations",
				ArgsUsage: "<version>",
				Action: withMigrate(func(m *migrate.Migrate, c *cli.Context) error {
					if c.NArg() < 1 {
						return errors.New("force requires version argument")
					}
					v, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("invalid version: %w", err)
					}
					if err := m.Force(v); err != nil {
						return fmt.Errorf("force failed: %w", err)
					}
					fmt.Printf("Forced version to %d\n", v)
					return nil
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withMigrate opens a migrator for the command and closes it afterwards.
func withMigrate(fn func(*migrate.Migrate, *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		dbURL := c.String("database-url")
		if dbURL == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dbURL = cfg.DatabaseURL
		}
		if dbURL == "" {
			return errors.New("DATABASE_URL is not set")
		}

		m, err := migrate.New("file://"+c.String("path"), dbURL)
		if err != nil {
			return fmt.Errorf("migration failed to initialize: %w", err)
		}
		defer m.Close()

		return fn(m, c)
	}
}
