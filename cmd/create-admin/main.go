package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/student-registry/internal/app"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/logger"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/repository"
	"github.com/stemsi/student-registry/internal/service"
	"github.com/stemsi/student-registry/internal/session"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.MustLoad()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.StoreDriver == config.StoreMemory {
		fmt.Println("Error: STORE_DRIVER=memory keeps nothing after this command exits; use postgres or sqlite")
		os.Exit(1)
	}

	ctx := context.Background()

	// ─── Open Record Store ─────────────────────────────────────────────
	records, _, err := app.OpenRecordStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer records.Close()

	authService, err := service.NewAuthService(cfg, records, session.NewMemoryStore())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Account ===")

	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		fmt.Println("Error: Username must be at least 3 characters")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 8 || len(password) > 72 {
		fmt.Println("Error: Password must be 8 to 72 characters")
		return
	}

	fmt.Print("Enter Role [admin/user] (default admin): ")
	roleStr, _ := reader.ReadString('\n')
	role := model.RoleAdmin
	if roleStr = strings.TrimSpace(roleStr); roleStr != "" {
		role = model.Role(roleStr)
	}
	if !role.Valid() {
		fmt.Println("Error: Role must be admin or user")
		return
	}

	// ─── Create Account ───────────────────────────────────────────────
	account, err := authService.CreateAccount(ctx, username, password, role)
	if errors.Is(err, repository.ErrDuplicateUsername) {
		fmt.Printf("Error: username '%s' is already taken\n", username)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create account")
	}

	fmt.Printf("\nSuccess! Account '%s' (%s) created with ID: %d\n", account.Username, account.Role, account.ID)
}
