package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/candidate-scout/internal/export/sheets"
	"github.com/spigell/candidate-scout/internal/mcp"
	"github.com/spigell/candidate-scout/internal/providers"
	"github.com/spigell/candidate-scout/internal/sourcing"
	"github.com/spigell/candidate-scout/internal/state"
	"github.com/spigell/candidate-scout/internal/store/neo4j"
	"github.com/spigell/candidate-scout/internal/store/postgres"
)

const (
	app = "candidate-scout"
)

type Config struct {
	Search    SearchConfig     `mapstructure:"search"`
	Cache     CacheConfig      `mapstructure:"cache"`
	State     StateConfig      `mapstructure:"state"`
	Providers providers.Config `mapstructure:"providers"`
	AI        *AIConfig        `mapstructure:"ai"`
	Import    ImportConfig     `mapstructure:"import"`
	Export    ExportConfig     `mapstructure:"export"`
	Serve     mcp.Config       `mapstructure:"serve"`
}

type SearchConfig struct {
	Limit       int           `mapstructure:"limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type StateConfig struct {
	Path       string `mapstructure:"path"`
	MaxHistory int    `mapstructure:"max-history"`
}

type AIConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Provider  string        `mapstructure:"provider"`
	BatchSize int           `mapstructure:"batch-size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Gemini    *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ImportConfig struct {
	Postgres postgres.Config `mapstructure:"postgres"`
	Neo4j    Neo4jConfig     `mapstructure:"neo4j"`
}

type Neo4jConfig struct {
	neo4j.Config `mapstructure:",squash"`
	PasswordFile string `mapstructure:"password-file"`
}

type ExportConfig struct {
	Sheets sheets.Config `mapstructure:"sheets"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "candidate-scout searches many candidate sources at once and ranks the people it finds",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is candidate-scout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("search.limit", sourcing.DefaultResultLimit)
	viper.SetDefault("search.timeout", sourcing.DefaultProviderTimeout)
	viper.SetDefault("search.concurrency", 8)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.size", 128)
	viper.SetDefault("cache.ttl", 5*time.Minute)
	viper.SetDefault("state.path", state.DefaultPath)
	viper.SetDefault("state.max-history", state.DefaultMaxHistory)
	viper.SetDefault("ai.enabled", false)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.batch-size", sourcing.DefaultRankBatch)
	viper.SetDefault("ai.timeout", sourcing.DefaultRankTimeout)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("export.sheets.tab", sheets.DefaultTab)
	viper.SetDefault("serve.host", mcp.DefaultHost)
	viper.SetDefault("serve.port", mcp.DefaultPort)
}

func initConfig() {
	// A missing .env is normal; credentials may come from the real environment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Defaults are enough to run without a config file, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
