package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Booking BookingConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// BookingConfig bounds the booking transaction and the payment reconciler.
type BookingConfig struct {
	TxTimeout          time.Duration
	PaymentStaleAfter  time.Duration
	ReconcileInterval  time.Duration
	EventBufferSize    int
	RelayChannelPrefix string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	txTimeout, err := time.ParseDuration(viper.GetString("BOOKING_TX_TIMEOUT"))
	if err != nil {
		txTimeout = 5 * time.Second
	}

	paymentStaleAfter, err := time.ParseDuration(viper.GetString("PAYMENT_STALE_AFTER"))
	if err != nil {
		paymentStaleAfter = 24 * time.Hour
	}

	reconcileInterval, err := time.ParseDuration(viper.GetString("PAYMENT_RECONCILE_INTERVAL"))
	if err != nil {
		reconcileInterval = 15 * time.Minute
	}

	eventBufferSize := viper.GetInt("RELAY_EVENT_BUFFER")
	if eventBufferSize <= 0 {
		eventBufferSize = 32
	}

	migrationsDir := viper.GetString("DB_MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "db/migrations"
	}

	relayPrefix := viper.GetString("RELAY_CHANNEL_PREFIX")
	if relayPrefix == "" {
		relayPrefix = "portal:events"
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			Name:          viper.GetString("DB_NAME"),
			MigrationsDir: migrationsDir,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Booking: BookingConfig{
			TxTimeout:          txTimeout,
			PaymentStaleAfter:  paymentStaleAfter,
			ReconcileInterval:  reconcileInterval,
			EventBufferSize:    eventBufferSize,
			RelayChannelPrefix: relayPrefix,
		},
	}

	return config, nil
}
