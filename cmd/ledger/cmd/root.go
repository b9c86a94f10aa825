package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"exchange-ledger/cmd/ledger/config"
	"exchange-ledger/internal/remote"
	"exchange-ledger/internal/storage"
	"exchange-ledger/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Currency exchange ledger",
	Long: `Ledger keeps the transactions of a currency-exchange desk. It merges a
read-only remote dataset with locally recorded transactions, groups them into
deals, derives conversion payables from trader rates, and renders dashboards
and per-deal reports.

Examples:
  ledger dashboard --data-url https://example.com/transactions.json
  ledger deals --output-format markdown --pretty
  ledger report ACME-051225-001
  ledger add --customer "Acme Corp" --type conversion --base RMB --target USD --amount 50 --rate 7
  ledger serve --addr :8080
  ledger --version`,
	Version:           getVersionString(),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogger,
}

// ExecuteContext adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). Subcommands observe ctx for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")

	// Data source flags
	flags.String("data-url", "", "remote dataset URL (http, https or file)")
	flags.String("records-path", remote.DefaultRecordsPath, "JSONPath of the transaction array inside an envelope object")
	flags.Duration("fetch-timeout", 15*time.Second, "remote fetch timeout")
	flags.Duration("offline-cache-ttl", 0, "serve cached remote responses for this long when offline (0 disables)")

	// Local partition flags
	flags.String("store", string(storage.KindFile), "local store: file, sqlite")
	flags.String("store-path", "", "directory (file) or database path (sqlite) of the local store")
	flags.String("storage-key", storage.DefaultKey, "versioned key of the local partition")

	flags.String("locale", "en", "locale for number grouping and deal ordering")

	bindRootFlags()
}

// rootSettings are the persistent flags shared by every subcommand.
var rootSettings = []string{
	"verbose", "log-level", "log-format",
	"data-url", "records-path", "fetch-timeout", "offline-cache-ttl",
	"store", "store-path", "storage-key", "locale",
}

// bindRootFlags binds the persistent flags to viper.
func bindRootFlags() {
	for _, name := range rootSettings {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in a .env file, the config file and ENV variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error reading .env file: %s\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		// If a config file is specified, read it in.
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match, e.g. LEDGER_DATA_URL
	viper.SetEnvPrefix("LEDGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// setupLogger installs the process logger before any component is built.
func setupLogger(cmd *cobra.Command, args []string) error {
	logConfig, err := config.CreateLoggerConfig(
		viper.GetString("log-level"),
		viper.GetString("log-format"),
		viper.GetBool("verbose"),
	)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)
	return nil
}

// bindLocalFlags binds a subcommand's own flags to viper. Binding happens
// at run time so subcommands sharing a flag name do not shadow each other.
func bindLocalFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.LocalNonPersistentFlags())
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
