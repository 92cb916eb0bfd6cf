package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/csc-322-team/ebidding-system/internal/config"
	"github.com/csc-322-team/ebidding-system/internal/database"
	"github.com/csc-322-team/ebidding-system/internal/services"
)

// The sweeper runs the out-of-band maintenance the marketplace needs between
// requests: closing items past their deadline and evaluating suspension and
// VIP status. Settlement itself is request-driven and lives behind the
// services package; nothing here touches in-flight acceptances.
func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	db := database.InitDatabase()
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	cfg := config.LoadAuctionConfig()
	settlement := services.NewSettlementService(db, redisClient, cfg)
	moderation := services.NewModerationService(db, cfg)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Sweeper started, interval %s", cfg.SweepInterval)
	runSweep(context.Background(), settlement, moderation)

	for {
		select {
		case <-ticker.C:
			runSweep(context.Background(), settlement, moderation)
		case <-quit:
			log.Println("Sweeper shutting down...")
			return
		}
	}
}

func runSweep(ctx context.Context, settlement *services.SettlementService, moderation *services.ModerationService) {
	closed, err := settlement.CloseExpiredItems(ctx)
	if err != nil {
		log.Printf("Failed to close expired items: %v", err)
	} else if closed > 0 {
		log.Printf("Closed %d expired items", closed)
	}

	if err := moderation.EvaluateSuspensions(ctx); err != nil {
		log.Printf("Suspension evaluation failed: %v", err)
	}

	if err := moderation.EvaluateVIPStatus(ctx); err != nil {
		log.Printf("VIP evaluation failed: %v", err)
	}
}
