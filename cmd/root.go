package cmd

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "wedlock-server"

type Config struct {
	ListenAddress string          `mapstructure:"listen-address"`
	Mongo         *MongoConfig    `mapstructure:"mongo"`
	AI            *AIConfig       `mapstructure:"ai"`
	Matching      *MatchingConfig `mapstructure:"matching"`
	Payments      *PaymentsConfig `mapstructure:"payments"`
	Admin         *AdminConfig    `mapstructure:"admin"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type MatchingConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	ScoreTimeout time.Duration `mapstructure:"score-timeout"`
}

type PaymentsConfig struct {
	KeyID         string `mapstructure:"key-id"`
	KeyIDFile     string `mapstructure:"key-id-file"`
	KeySecret     string `mapstructure:"key-secret"`
	KeySecretFile string `mapstructure:"key-secret-file"`
}

type AdminConfig struct {
	Password        string        `mapstructure:"password"`
	PasswordFile    string        `mapstructure:"password-file"`
	TokenSecret     string        `mapstructure:"token-secret"`
	TokenSecretFile string        `mapstructure:"token-secret-file"`
	TokenTTL        time.Duration `mapstructure:"token-ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "wedlock-server is an AI-assisted matchmaking service",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is wedlock-server.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the serve and seed commands. If there is no
	// config, we can skip initialization.
	if serveCmd.CalledAs() == "" && seedCmd.CalledAs() == "" {
		return
	}

	// Local deployments keep secrets in a .env file; a missing file is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}
