package config

import (
	"os"
	"strconv"
	"time"
)

type AuctionConfig struct {
	VIPDiscountPercent  int
	BidExpiry           time.Duration
	SuspensionFine      int64
	RemovalThreshold    int
	VIPBalanceFloor     int64
	VIPTransactionFloor int
	RatingSampleMinimum int
	SweepInterval       time.Duration
}

// LoadAuctionConfig reads the auction/moderation knobs from the environment.
// Monetary values are in cents.
func LoadAuctionConfig() *AuctionConfig {
	return &AuctionConfig{
		VIPDiscountPercent:  getEnvAsInt("AUCTION_VIP_DISCOUNT_PERCENT", 10),
		BidExpiry:           getEnvAsDuration("AUCTION_BID_EXPIRY", 7*24*time.Hour),
		SuspensionFine:      getEnvAsInt64("AUCTION_SUSPENSION_FINE", 5000),
		RemovalThreshold:    getEnvAsInt("AUCTION_REMOVAL_THRESHOLD", 3),
		VIPBalanceFloor:     getEnvAsInt64("AUCTION_VIP_BALANCE_FLOOR", 500000),
		VIPTransactionFloor: getEnvAsInt("AUCTION_VIP_TRANSACTION_FLOOR", 5),
		RatingSampleMinimum: getEnvAsInt("AUCTION_RATING_SAMPLE_MINIMUM", 3),
		SweepInterval:       getEnvAsDuration("AUCTION_SWEEP_INTERVAL", 15*time.Minute),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
