package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the gateway configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	NewRelic   NewRelicConfig
	Storage    StorageConfig
	Inference  InferenceConfig
	Plant      PlantConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// StorageConfig holds the upload storage configuration
type StorageConfig struct {
	UploadDir string
}

// InferenceConfig holds the configuration for the disease-classification
// collaborator. An empty URL disables the /api/predict proxy.
type InferenceConfig struct {
	URL            string
	TimeoutSeconds int
}

// PlantConfig holds plant-related settings served back to devices
type PlantConfig struct {
	GrowthStage string
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	// Set defaults for configuration
	setDefaults()

	// Use config file from the flag if provided
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common directories with name "config"
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/greenhouse-gateway")
		viper.SetConfigName("config")
	}

	// Set environment variable prefix for config overrides
	viper.SetEnvPrefix("GATEWAY")

	// Enable automatic environment variable binding
	// For example, GATEWAY_SERVER_PORT will override server.port
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, using defaults and environment variables
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			// Config file was found but another error occurred
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 15020)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "gateway")
	viper.SetDefault("database.password", "gateway")
	viper.SetDefault("database.dbname", "gateway_db")
	viper.SetDefault("database.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.queuename", "greenhouse-events")

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "Greenhouse Gateway Local")
	viper.SetDefault("newrelic.enabled", false)

	// Storage defaults
	viper.SetDefault("storage.uploaddir", "./uploads")

	// Inference collaborator defaults - disabled unless a URL is configured
	viper.SetDefault("inference.url", "")
	viper.SetDefault("inference.timeoutseconds", 30)

	// Plant defaults - growth stage code returned on /level
	viper.SetDefault("plant.growthstage", "300")
}

// Load loads the configuration
func Load() (*Config, error) {
	// Server
	serverConfig := ServerConfig{
		Port: viper.GetInt("server.port"),
		Mode: viper.GetString("server.mode"),
	}

	// Database
	dbConfig := DatabaseConfig{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
	}

	// Redis
	redisConfig := RedisConfig{
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetInt("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	// Service Bus
	serviceBusConfig := ServiceBusConfig{
		ConnectionString: viper.GetString("servicebus.connectionstring"),
		QueueName:        viper.GetString("servicebus.queuename"),
	}

	// New Relic
	newRelicConfig := NewRelicConfig{
		AppName:    viper.GetString("newrelic.appname"),
		LicenseKey: viper.GetString("newrelic.licensekey"),
		Enabled:    viper.GetBool("newrelic.enabled"),
	}

	// Storage
	storageConfig := StorageConfig{
		UploadDir: viper.GetString("storage.uploaddir"),
	}

	// Inference
	inferenceConfig := InferenceConfig{
		URL:            viper.GetString("inference.url"),
		TimeoutSeconds: viper.GetInt("inference.timeoutseconds"),
	}

	// Plant
	plantConfig := PlantConfig{
		GrowthStage: viper.GetString("plant.growthstage"),
	}

	return &Config{
		Server:     serverConfig,
		Database:   dbConfig,
		Redis:      redisConfig,
		ServiceBus: serviceBusConfig,
		NewRelic:   newRelicConfig,
		Storage:    storageConfig,
		Inference:  inferenceConfig,
		Plant:      plantConfig,
	}, nil
}
