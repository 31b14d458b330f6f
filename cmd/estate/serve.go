package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/estate/internal/api"
	"github.com/rahul/estate/internal/gateway"
	"github.com/rahul/estate/internal/observability"
	"github.com/rahul/estate/pkg/config"
	"github.com/spf13/cobra"
)

var serveDashboard bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and any enabled chat gateways",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveDashboard, "dashboard", false, "Show a live status line at the top of the terminal")
}

func runServe() error {
	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if serveDashboard {
		observability.InitializeTerminal()
	}
	out := observability.NewTermWriter()
	observability.PrintBanner(out)

	app, err := newApp(cfg, approverFor(cfg.Approval.Mode, false, os.Stdin, os.Stdout), out)
	if err != nil {
		return err
	}
	defer app.Close()

	if !observability.PrintChecks(out, startupChecks(cfg, app.store.Tables())) {
		log.Printf("Some startup checks failed, continuing with what is available")
	}
	if overrides := app.prompts.Overrides(); len(overrides) > 0 {
		log.Printf("Prompt overrides: %v", overrides)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(api.Config{
		Addr:    cfg.Addr(),
		DataDir: cfg.App.DataDir,
		Manager: app.manager,
		Store:   app.store,
		Status:  app.status,
		Metrics: app.metrics,
	})
	go func() {
		if err := server.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] HTTP SERVER ERROR: %v\033[0m", err)
			stop()
		}
	}()

	messengers := startGateways(cfg, app)

	if serveDashboard {
		dash := observability.NewDashboard(app.status)
		go func() {
			ticker := time.NewTicker(1 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					dash.PrintLiveStatus()
				}
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.status.Heartbeat()
				app.logger.LogHeartbeat()
			}
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("Warning: %v", err)
	}
	for _, m := range messengers {
		if err := m.Stop(); err != nil {
			log.Printf("Warning: failed to stop gateway: %v", err)
		}
	}

	if serveDashboard {
		observability.CleanupTerminal()
	}
	log.Println("\033[95m[ EXIT ] AGENTS SHUT DOWN. GOODBYE.\033[0m")
	return nil
}

// startGateways starts every enabled chat gateway. Failures are logged and
// the gateway is skipped.
func startGateways(cfg *config.Config, app *app) []gateway.Messenger {
	var started []gateway.Messenger

	if g, ok := cfg.GetGatewayConfig("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(g.Token, app.manager, g.RequireApproval)
		if err != nil {
			log.Printf("Warning: telegram gateway disabled: %v", err)
		} else {
			go func() {
				if err := tg.Start(); err != nil {
					log.Printf("\033[91m[ FAIL ] TELEGRAM GATEWAY ERROR: %v\033[0m", err)
				}
			}()
			started = append(started, tg)
		}
	}

	if g, ok := cfg.GetGatewayConfig("discord"); ok {
		dg, err := gateway.NewDiscordGateway(g.Token, app.manager, g.RequireApproval)
		if err == nil {
			err = dg.Start()
		}
		if err != nil {
			log.Printf("Warning: discord gateway disabled: %v", err)
		} else {
			started = append(started, dg)
		}
	}
	return started
}
