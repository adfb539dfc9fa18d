package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the application.
// It includes the environment type, database configuration, the Telegram
// token, and the operational defaults of the delivery business.
type Config struct {
	Env           string         `yaml:"env"`            // Env is the current environment: local, dev, prod.
	Database      PostgresConfig `yaml:"postgres"`       // Database holds the postgres database configuration.
	Token         string         `yaml:"token"`          // Token is an unique telegram bot token.
	PollerTimeout time.Duration  `yaml:"poller_timeout"` // PollerTimeout is the long-poll timeout of the telegram poller.
	AdminIDs      []int64        `yaml:"admin_ids"`      // AdminIDs are the chat IDs allowed to use admin commands.
	CodeOffset    int            `yaml:"code_offset"`    // CodeOffset is the starting value of the client-code counter.
	DefaultRate   string         `yaml:"usd_to_som"`     // DefaultRate is the USD-to-som rate seeded on first start.
	USDPerKg      string         `yaml:"usd_per_kg"`     // USDPerKg is the shipping tariff per kilogram.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Name     string `yaml:"db_name"`  // Name is the name of the database.
}

// MustLoad loads the configuration from a YAML file and returns a Config struct.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		panic("config path is empty")
	}

	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		panic("config error: " + err.Error())
	}

	defPollerTimeout := 10
	defCodeOffset := 5000

	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("telegram.timeout", time.Duration(defPollerTimeout*int(time.Second)))
	viper.SetDefault("codes.offset", defCodeOffset)
	viper.SetDefault("pricing.usd_to_som", "89.5")
	viper.SetDefault("pricing.usd_per_kg", "1.2")

	adminIDs := make([]int64, 0, len(viper.GetIntSlice("telegram.admin_ids")))
	for _, id := range viper.GetIntSlice("telegram.admin_ids") {
		adminIDs = append(adminIDs, int64(id))
	}

	return &Config{
		Env:           viper.GetString("env"),
		Token:         viper.GetString("telegram.token"),
		PollerTimeout: viper.GetDuration("telegram.timeout"),
		AdminIDs:      adminIDs,
		CodeOffset:    viper.GetInt("codes.offset"),
		DefaultRate:   viper.GetString("pricing.usd_to_som"),
		USDPerKg:      viper.GetString("pricing.usd_per_kg"),
		Database: PostgresConfig{
			Host:     viper.GetString("postgres.host"),
			Port:     viper.GetString("postgres.port"),
			User:     viper.GetString("postgres.user"),
			Password: viper.GetString("postgres.password"),
			Name:     viper.GetString("postgres.db_name"),
		},
	}
}
