package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"EcbBreaker/server/internal/api/gateway"
	"EcbBreaker/server/internal/config"
	"EcbBreaker/server/internal/pkg/encryption"
	"EcbBreaker/server/internal/services/auth"
	"EcbBreaker/server/internal/services/challenge"
	"EcbBreaker/server/internal/services/demo"
	"EcbBreaker/server/internal/storage"
)

// Store is what the services need from storage.
type Store interface {
	auth.Store
	demo.Store
	gateway.RunLister
}

// connectDB connects to postgres with retries and initializes the schema.
func connectDB(cfg config.DatabaseConfig) (*storage.DB, error) {
	dbConfig := storage.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	}

	var (
		db  *storage.DB
		err error
	)
	maxRetries := 30
	retryDelay := 2 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = storage.New(dbConfig)
		if err == nil {
			fmt.Printf("✓ Connected to database (attempt %d)\n", attempt)
			break
		}

		if attempt < maxRetries {
			fmt.Printf("✗ Failed to connect to database (attempt %d/%d): %v\n", attempt, maxRetries, err)
			fmt.Printf("  Retrying in %v...\n", retryDelay)
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	fmt.Println("Database schema initialized")
	return db, nil
}

func main() {
	// Load configuration
	cfg := config.Load()
	fmt.Println("Configuration loaded:")
	fmt.Println(cfg)

	var store Store
	if cfg.Database.Enabled {
		db, err := connectDB(cfg.Database)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer db.Close()
		store = db
	} else {
		fmt.Println("Database disabled, keeping run history in memory")
		store = storage.NewMemory()
	}

	// Create services
	authService := auth.New(cfg.JWT.Secret, cfg.JWT.TTL, store)
	if created, err := authService.EnsureOperator(cfg.Operator.Username, cfg.Operator.Password); err != nil {
		log.Fatalf("Failed to seed operator: %v", err)
	} else if created {
		log.Printf("Operator %q created", cfg.Operator.Username)
	}
	if cfg.Operator.Password == "" {
		log.Printf("Warning: OPERATOR_PASSWORD not set, operator endpoints are unusable until an operator exists")
	}

	demoService := demo.NewService(store, demo.Options{
		Algorithm:  cfg.Attack.Algorithm,
		Mode:       cfg.Attack.Mode,
		Padding:    cfg.Attack.Padding,
		Workers:    cfg.Attack.Workers,
		MaxQueries: cfg.Attack.MaxQueries,
		Filler:     cfg.Attack.Filler,
	})
	challengeService := challenge.NewService(challenge.Options{
		TTL:           cfg.Challenge.TTL,
		MaxSessions:   cfg.Challenge.MaxSessions,
		DefaultSecret: cfg.Challenge.Secret,
	})

	// Create gateway server with services
	gatewayServer := gateway.New(
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		authService,
		demoService,
		challengeService,
		store,
	)

	log.Printf("Supported algorithms: %s", strings.Join(encryption.Algorithms(), ", "))

	// Start gateway server
	if err := gatewayServer.Start(); err != nil {
		log.Fatalf("Gateway server failed: %v", err)
	}
}
