package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/yangakandeni/kwella/internal/shared/auth"
	"github.com/yangakandeni/kwella/internal/shared/config"
)

func main() {
	userID := flag.String("user", "550e8400-e29b-41d4-a716-446655440000", "User ID (UUID)")
	phone := flag.String("phone", "0731245689", "Phone number")
	role := flag.String("role", "RIDER", "Role (RIDER|DRIVER|OWNER)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	token, err := jwtService.GenerateToken(*userID, *phone, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating JWT token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nJWT Token generated successfully!\n\n")
	fmt.Printf("User ID:   %s\n", *userID)
	fmt.Printf("Phone:     %s\n", *phone)
	fmt.Printf("Role:      %s\n", *role)
	fmt.Printf("\nToken:\n%s\n", token)
	fmt.Printf("\nConnect with:\n")
	fmt.Printf("ws://localhost:%d/ws/trip?token=%s\n\n", cfg.WebSocket.Port, token)
}
