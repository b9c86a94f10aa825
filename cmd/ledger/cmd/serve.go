package cmd

import (
	"fmt"

	"exchange-ledger/cmd/ledger/config"
	"exchange-ledger/internal/intake"
	"exchange-ledger/internal/server"
	"exchange-ledger/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger over a JSON HTTP API",
	Long: `Serve loads the ledger and exposes it over HTTP for a browser front end:

  GET  /api/dashboard               summary with load diagnostics
  GET  /api/deals                   deals sorted by id
  GET  /api/deals/{dealID}/report   plain-text deal report
  GET  /api/transactions            merged ledger
  POST /api/transactions            record a new transaction
  POST /api/refresh                 reload both partitions

Examples:
  ledger serve
  ledger serve --addr :8080 --rate-limit 5 --data-url https://example.com/transactions.json`,
	Args:    cobra.NoArgs,
	PreRunE: validateServeFlags,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", server.DefaultConfig().Addr, "listen address")
	serveCmd.Flags().Float64("rate-limit", server.DefaultConfig().RateLimit, "requests per second allowed (0 disables)")
	serveCmd.Flags().Int("rate-burst", server.DefaultConfig().RateBurst, "request burst allowed above the rate limit")
	serveCmd.Flags().Bool("read-only", false, "disable POST /api/transactions")
}

func validateServeFlags(cmd *cobra.Command, args []string) error {
	if err := bindLocalFlags(cmd); err != nil {
		return err
	}
	_, err := serverConfig()
	return err
}

func serverConfig() (*server.Config, error) {
	return config.CreateServerConfig(
		viper.GetString("addr"),
		viper.GetFloat64("rate-limit"),
		viper.GetInt("rate-burst"),
		viper.GetString("locale"),
	)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serverConfig()
	if err != nil {
		return err
	}

	app, err := newLedgerApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var svc *intake.Service
	if !viper.GetBool("read-only") {
		svc = intake.NewService(app.store, nil, nil)
	}

	srv := server.New(cfg, app.store, svc)
	srv.SetDiagnostics(app.store.Refresh(cmd.Context()))

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving ledger API on http://%s/api\n", cfg.Addr)
	return logger.TimedOperation("serve", app.logger, func() error {
		return srv.ListenAndServe(cmd.Context())
	})
}
