package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/StageDoorHQ/StageDoor/app/controllers"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/cache"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/creatorstate"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/database"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/env"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/onboarding"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/payments"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/preflight"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/router"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/vault"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/webhook"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()

	// Replay protection. Redis keeps the dedupe window across restarts and
	// instances; the in-memory guard is for single-node and dev setups.
	var replayStore webhook.ReplayStore
	if env.GetEnv("REPLAY_STORE", "redis") == "memory" {
		replayStore = webhook.NewMemoryReplayGuard(webhook.ReplayWindow, webhook.DefaultReplayCapacity)
	} else {
		replayStore = webhook.NewRedisReplayGuard(cache.GetClient(), webhook.ReplayWindow)
	}
	verifier := webhook.NewVerifier(replayStore)

	ledger := payments.NewService(payments.NewRepository(db))
	states := creatorstate.NewService(creatorstate.NewRepository(db))
	onboardingSvc := onboarding.NewService(onboarding.NewRepository(db))

	vaultSvc, err := vault.NewService(
		newVaultStorage(),
		vault.NewRepository(db),
		vault.NewGormAuditLog(db),
		env.MustGetEnv("VAULT_ENCRYPTION_KEY"),
	)
	if err != nil {
		log.Fatalf("vault setup failed: %v", err)
	}

	gate := preflight.NewGate(
		preflight.NewLedgerPaymentProvider(ledger),
		preflight.NewStateVerificationProvider(states),
	)

	ct := router.Controllers{
		Webhooks:   controllers.NewWebhookController(verifier, ledger, states, onboardingSvc, vaultSvc),
		Payments:   controllers.NewPaymentController(ledger),
		Rooms:      controllers.NewRoomController(gate),
		Vault:      controllers.NewVaultController(vaultSvc),
		Onboarding: controllers.NewOnboardingController(onboardingSvc, ledger),
	}

	app := fiber.New(fiber.Config{
		AppName: "StageDoor",
	})

	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, ct)

	return app
}

// newVaultStorage binds the vault to S3 when a bucket is configured and falls
// back to the process-local store otherwise. The fallback does not survive a
// restart, so production deployments must set VAULT_S3_BUCKET.
func newVaultStorage() vault.StorageClient {
	bucket := env.GetEnv("VAULT_S3_BUCKET", "")
	if bucket == "" {
		fiberlog.Warn("[Vault] VAULT_S3_BUCKET not set, using in-memory artifact store")
		return vault.NewMemoryStorage()
	}

	storage, err := vault.NewS3Storage(context.Background(), vault.S3Config{
		Region:          env.GetEnv("VAULT_S3_REGION", "auto"),
		AccessKeyID:     env.MustGetEnv("VAULT_S3_ACCESS_KEY_ID"),
		SecretAccessKey: env.MustGetEnv("VAULT_S3_SECRET_ACCESS_KEY"),
		Bucket:          bucket,
		EndpointURL:     env.GetEnv("VAULT_S3_ENDPOINT", ""),
	})
	if err != nil {
		log.Fatalf("vault storage setup failed: %v", err)
	}
	return storage
}
