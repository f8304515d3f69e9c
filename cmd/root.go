package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/pf-reconciler/internal/reconcile"
)

const (
	app = "pf-reconciler"
)

type Config struct {
	Reconcile reconcile.Config `mapstructure:"reconcile"`
	Output    OutputConfig     `mapstructure:"output"`
	AI        AIConfig         `mapstructure:"ai"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type AIConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "pf-reconciler compares the employment history of a CV with provident fund records",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "PF_RECONCILER_GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding PF_RECONCILER_GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is pf-reconciler.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if reconcileCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting has a default, so only an explicitly requested file is mandatory.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{
		Reconcile: reconcile.DefaultConfig(),
		Output:    OutputConfig{Format: "json"},
		AI: AIConfig{
			Provider: "gemini",
			Gemini:   GeminiConfig{MaxRetries: -1},
		},
	}

	if err := viper.Unmarshal(config); err != nil {
		return config, err
	}

	return config, nil
}
