package config

import (
	"os"
	"strconv"
	"strings"
)

// Config captures everything the ledger process reads from the environment.
// main loads a .env file first (via godotenv) so local runs stay simple.
type Config struct {
	Addr          string
	AdminAddr     string
	JWTSigningKey string

	// Pinata-compatible blob store collaborator.
	PinataBaseURL string
	PinataJWT     string
	GatewayURL    string

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	// PostgresDSN selects the durable stores when set; empty means in-memory.
	PostgresDSN string

	AuditBuffer int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("PHARMLEDGER_ADDR", ":8080"),
		AdminAddr:     os.Getenv("PHARMLEDGER_ADMIN_ADDR"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PinataBaseURL: getenv("PINATA_BASE_URL", "https://api.pinata.cloud"),
		PinataJWT:     os.Getenv("PINATA_JWT"),
		GatewayURL:    getenv("IPFS_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaTopic:    getenv("KAFKA_AUDIT_TOPIC", "pharmledger.audit"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		AuditBuffer:   getenvInt("AUDIT_BUFFER", 256),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
