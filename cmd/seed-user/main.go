package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yangakandeni/kwella/internal/shared/auth"
	"github.com/yangakandeni/kwella/internal/shared/config"
	"github.com/yangakandeni/kwella/internal/shared/db"
	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/shared/utils"
)

// seed-user создает активного пользователя в БД и печатает токен для него
func main() {
	phone := flag.String("phone", "", "Phone number (required)")
	password := flag.String("password", "", "Password (required)")
	role := flag.String("role", "RIDER", "Role (RIDER|DRIVER|OWNER)")
	firstName := flag.String("first-name", "", "First name")
	lastName := flag.String("last-name", "", "Last name")
	flag.Parse()

	if *phone == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "both -phone and -password are required")
		flag.Usage()
		os.Exit(2)
	}
	if !user.ValidRole(*role) {
		fmt.Fprintf(os.Stderr, "invalid role: %s\n", *role)
		os.Exit(2)
	}

	log := logger.NewLogger("seed-user")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(logger.Entry{Action: "config_load_failed", Message: err.Error()})
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{Action: "db_connection_failed", Message: err.Error()})
	}
	defer db.Close(pool, log)

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal(logger.Entry{Action: "db_migration_failed", Message: err.Error()})
	}

	id := utils.NewUUID()
	var u *user.User
	switch user.Role(*role) {
	case user.RoleDriver:
		u = user.NewDriver(id, *phone)
	case user.RoleOwner:
		u = user.NewOwner(id, *phone)
	default:
		u = user.NewRider(id, *phone)
	}
	u.FirstName = *firstName
	u.LastName = *lastName
	u.IsActive = true

	repo := user.NewPgRepository(pool, log)
	if err := repo.Create(ctx, u, *password); err != nil {
		log.Fatal(logger.Entry{Action: "seed_user_failed", Message: err.Error()})
	}

	token, err := auth.NewJWTService(cfg.JWT).GenerateToken(u.ID, u.PhoneNumber, string(u.Type))
	if err != nil {
		log.Fatal(logger.Entry{Action: "token_generation_failed", Message: err.Error()})
	}

	fmt.Printf("\nUser created\n")
	fmt.Printf("ID:    %s\n", u.ID)
	fmt.Printf("Phone: %s\n", u.PhoneNumber)
	fmt.Printf("Role:  %s\n", u.Type)
	fmt.Printf("\nToken:\n%s\n\n", token)
}
