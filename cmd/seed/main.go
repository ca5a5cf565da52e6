// Simple seeding tool to create a default applicant and admin for local work.
// Usage (env overrides):
//
//	SEED_EMAIL=asha.rao@example.com SEED_PASSWORD=Password123
//
// Prints a ready-to-use bearer token for each account.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"loanserve/internal/domain"
	"loanserve/internal/repository/postgres"
	"loanserve/pkg/config"
	kycerrors "loanserve/pkg/errors"
	"loanserve/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("seed-user")

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	ctx := context.Background()

	email := getenv("SEED_EMAIL", "asha.rao@example.com")
	password := getenv("SEED_PASSWORD", "Password123")
	applicantID := ensureUser(ctx, userRepo, log, email, password, "customer")

	adminEmail := getenv("SEED_ADMIN_EMAIL", "ops.admin@example.com")
	adminPassword := getenv("SEED_ADMIN_PASSWORD", "Password123")
	adminID := ensureUser(ctx, userRepo, log, adminEmail, adminPassword, domain.RoleAdmin)

	fmt.Println("OK: users seeded")
	fmt.Printf("applicant token: %s\n", issueToken(log, cfg, applicantID, email, "customer"))
	fmt.Printf("admin token:     %s\n", issueToken(log, cfg, adminID, adminEmail, domain.RoleAdmin))
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func ensureUser(ctx context.Context, repo *postgres.UserRepository, log logger.Logger, email, password, role string) uuid.UUID {
	existing, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return existing.ID
	}
	if !errors.Is(err, kycerrors.ErrUserNotFound) {
		log.Fatal("FindByEmail failed", map[string]interface{}{"error": err.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Hash failed", map[string]interface{}{"error": err.Error()})
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatal("Create user failed", map[string]interface{}{"error": err.Error()})
	}
	return user.ID
}

func issueToken(log logger.Logger, cfg *config.Config, userID uuid.UUID, email, role string) string {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   email,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		log.Fatal("Token signing failed", map[string]interface{}{"error": err.Error()})
	}
	return signed
}
