package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/student-registry/internal/app"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/logger"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/service"
	"github.com/stemsi/student-registry/internal/validator"
	"github.com/urfave/cli/v2"
)

var names = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Lukman Hakim", "Maya Septiana", "Nanda Pratama",
	"Oki Setiana", "Putri Dian", "Rafi Ahmad", "Siska Saraswati", "Toni Setiawan",
}

var genders = []model.Gender{model.GenderMale, model.GenderFemale, model.GenderOther}

func main() {
	cliApp := &cli.App{
		Name:  "seed-students",
		Usage: "register demo students through the registration service",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 50, Usage: "number of students to create"},
		},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver == config.StoreMemory {
		return fmt.Errorf("STORE_DRIVER=memory keeps nothing after this command exits; use postgres or sqlite")
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	records, _, err := app.OpenRecordStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer records.Close()

	studentService := service.NewStudentService(records, nil, cfg.StrictClassLabels)

	count := c.Int("count")
	fmt.Printf("=== Seeding %d Students ===\n", count)

	for i := 0; i < count; i++ {
		raw := map[string]any{
			"name":   names[i%len(names)],
			"age":    6 + i%13,
			"gender": string(genders[i%len(genders)]),
			"class":  model.ClassLabels[i%len(model.ClassLabels)],
		}
		student, err := studentService.Register(ctx, raw)
		if err != nil {
			return fmt.Errorf("register %v: %w", raw["name"], err)
		}
		log.Debug().Int64("id", student.ID).Str("name", student.Name).Msg("Seeded student")
	}

	fmt.Printf("Done. %d students created.\n", count)
	return nil
}
