package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir := t.TempDir()

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	require.NoError(t, os.Mkdir(tempConfigsSubDir, 0755))

	testAppName := "WalletTest"
	testPort := 9090
	testLogLevel := "debug"
	testPublicApp := "storefront"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nRECONCILIATION_PUBLIC_APP_ID=%s\n",
		testAppName, testPort, testLogLevel, testPublicApp,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	require.NoError(t, os.WriteFile(envFilePath, []byte(envContent), 0644))

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()
	require.NoError(t, os.Chdir(tempDir))

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testPublicApp, cfg.Reconciliation.PublicAppID)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "wallet_adjustment_requests", cfg.Kafka.AdjustmentTopic)
	assert.Equal(t, "wallet_events", cfg.Kafka.WalletEventsTopic)
	assert.Equal(t, "system", cfg.Reconciliation.SystemTenantID)
	assert.Equal(t, 10, cfg.WorkerPool.Size)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func defaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Application: ApplicationConfig{Env: v.GetString("APP_ENV"), Name: v.GetString("APP_NAME")},
		Logging:     LoggingConfig{Level: v.GetString("LOG_LEVEL")},
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers:           v.GetString("KAFKA_BROKERS"),
			AdjustmentTopic:   v.GetString("KAFKA_ADJUSTMENT_TOPIC"),
			WalletEventsTopic: v.GetString("KAFKA_WALLET_EVENTS_TOPIC"),
			ConsumerGroup:     v.GetString("KAFKA_CONSUMER_GROUP"),
			MinBytes:          v.GetInt("KAFKA_CONSUMER_MIN_BYTES"),
			MaxBytes:          v.GetInt("KAFKA_CONSUMER_MAX_BYTES"),
			MaxWait:           v.GetDuration("KAFKA_CONSUMER_MAX_WAIT"),
			DLQTopic:          v.GetString("KAFKA_DLQ_TOPIC"),
		},
		Postgres: PostgresConfig{
			URL:             v.GetString("POSTGRES_URL"),
			MaxConns:        int32(v.GetInt("POSTGRES_MAX_CONNS")),
			MinConns:        int32(v.GetInt("POSTGRES_MIN_CONNS")),
			ConnMaxLifetime: v.GetDuration("POSTGRES_MAX_CONN_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("POSTGRES_MAX_CONN_IDLE_TIME"),
		},
		MongoDB: MongoDBConfig{
			URI:         v.GetString("MONGO_URI"),
			Database:    v.GetString("MONGO_DATABASE"),
			Timeout:     v.GetDuration("MONGO_TIMEOUT"),
			MaxPoolSize: uint64(v.GetInt("MONGO_MAX_POOL_SIZE")),
			MinPoolSize: uint64(v.GetInt("MONGO_MIN_POOL_SIZE")),
		},
		Outbox: OutboxConfig{
			PollingInterval:  v.GetDuration("OUTBOX_POLLING_INTERVAL"),
			BatchSize:        v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxRetryAttempts: v.GetInt("OUTBOX_MAX_RETRY_ATTEMPTS"),
		},
		WorkerPool: WorkerPoolConfig{Size: v.GetInt("WORKER_POOL_SIZE")},
		Reconciliation: ReconciliationConfig{
			PublicAppID:    v.GetString("RECONCILIATION_PUBLIC_APP_ID"),
			SystemTenantID: v.GetString("RECONCILIATION_SYSTEM_TENANT_ID"),
			MaxScanRows:    v.GetInt("RECONCILIATION_MAX_SCAN_ROWS"),
		},
	}
}

func TestConfig_Validate_HappyPath(t *testing.T) {
	assert.NoError(t, defaultConfig().validate(), "Default config should be valid")
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Run("MissingPublicAppID", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Reconciliation.PublicAppID = ""
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RECONCILIATION_PUBLIC_APP_ID is required")
	})

	t.Run("MinConnsAboveMax", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Postgres.MinConns = 50
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "POSTGRES_MIN_CONNS must not exceed POSTGRES_MAX_CONNS")
	})

	t.Run("CollectsAllErrors", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Server.Port = 0
		cfg.WorkerPool.Size = 0
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERVER_PORT must be greater than 0")
		assert.Contains(t, err.Error(), "WORKER_POOL_SIZE must be greater than 0")
	})
}
