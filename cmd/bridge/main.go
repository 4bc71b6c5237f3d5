package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/app"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/config"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/gateway"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/logging"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/service"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/telegram"
	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/todo"
	"github.com/spf13/cobra"
)

const telegramTimeout = 60 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bridge",
		Short:         "Forward /todo chat commands to the OpenClaw TODO server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.AddCommand(serveCmd(), sendCmd(), checkCmd(), bootstrapCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat gateway with the todo plugin loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func sendCmd() *cobra.Command {
	var senderID string
	cmd := &cobra.Command{
		Use:   "send <text...>",
		Short: "Dispatch one message through the gateway and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			logger := logging.NewConsole(cmd.ErrOrStderr(), cfg.LogLevel)
			host, _, err := newGateway(cfg, logger)
			if err != nil {
				return err
			}
			return runSend(cmd.Context(), host, cmd.OutOrStdout(), strings.Join(args, " "), senderID)
		},
	}
	cmd.Flags().StringVar(&senderID, "sender", "", "sender identity forwarded to the TODO server")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the TODO server health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			logger := logging.NewConsole(io.Discard, cfg.LogLevel)
			_, plugin, err := newGateway(cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "todo server: %s (source: %s)\n", plugin.Client().BaseURL(), plugin.Source())

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := plugin.Client().CheckHealth(ctx); err != nil {
				return fmt.Errorf("todo server unhealthy: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func bootstrapCmd() *cobra.Command {
	var envPath string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Write the effective environment configuration to a .env file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			content := strings.Join(envLines(cfg), "\n") + "\n"
			if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", envPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&envPath, "env-file", ".env", "path to output .env file")
	return cmd
}

// newGateway builds the host and loads the todo plugin into it.
func newGateway(cfg config.Config, logger *slog.Logger) (*gateway.Host, *todo.Plugin, error) {
	pluginConfig, err := config.LoadPluginConfig(cfg.PluginConfigPath, todo.PluginID)
	if err != nil {
		return nil, nil, err
	}
	host := gateway.NewHost(logger.With("plugin", todo.PluginID), pluginConfig)
	plugin := todo.NewPlugin(cfg.TodoServerURLEnv)
	plugin.Register(host)
	return host, plugin, nil
}

func runSend(ctx context.Context, host *gateway.Host, out io.Writer, text string, senderID string) error {
	reply, ok := host.Dispatch(ctx, gateway.Inbound{Text: text, SenderID: senderID, Channel: "cli"})
	if !ok {
		return fmt.Errorf("no handler for %q", text)
	}
	_, err := fmt.Fprintln(out, reply.Text)
	return err
}

func runServe() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if err := config.ValidateServe(cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}

	host, plugin, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	var telegramAPI *telegram.API
	var telegramCheck app.Checker
	if cfg.BotTransport != config.TransportNone {
		telegramAPI = telegram.NewAPI(cfg.BotToken, telegramTimeout, time.Duration(cfg.BotPollingIntervalS)*time.Second)
		telegramCheck = telegramAPI.CheckConnectivity
		learnBotUsername(telegramAPI, host, logger)
	}

	server := app.NewHealthServer(app.Options{
		Addr:          app.LocalAddr(cfg.HealthPort),
		Host:          host,
		TodoURL:       plugin.Client().BaseURL(),
		TodoURLSource: string(plugin.Source()),
		TodoCheck:     plugin.Client().CheckHealth,
		TelegramCheck: telegramCheck,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var webhookServer *http.Server
	switch cfg.BotTransport {
	case config.TransportPolling:
		bridgeService := service.NewBridgeService(logger, host, telegramAPI)
		if err := telegramAPI.DeleteWebhook(ctx); err != nil {
			logger.Warn("delete webhook failed before polling", "error", err)
		}
		go func() {
			errCh <- telegramAPI.PollUpdates(ctx, bridgeService.HandleUpdate)
		}()
	case config.TransportWebhook:
		bridgeService := service.NewBridgeService(logger, host, telegramAPI)
		if err := telegramAPI.SetupWebhook(ctx, cfg.WebhookURL); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle(telegramAPI.WebhookPath(cfg.WebhookURL), bridgeService.WebhookHandler())
		webhookServer = &http.Server{Addr: cfg.WebhookListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			errCh <- webhookServer.ListenAndServe()
		}()
	}

	logger.Info("bridge serving",
		"control_endpoint", app.LocalAddr(cfg.HealthPort),
		"transport", cfg.BotTransport,
		"todo_url", plugin.Client().BaseURL(),
		"todo_url_source", string(plugin.Source()),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		logger.Info("shutting down bridge")
		if webhookServer != nil {
			if err := webhookServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil && !app.IsServerClosed(err) {
			return err
		}
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, context.Canceled) || app.IsServerClosed(err) {
			return nil
		}
		return err
	}
}

// learnBotUsername lets the host skip commands addressed to other bots in
// group chats. Failure only disables that filter.
func learnBotUsername(api *telegram.API, host *gateway.Host, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	me, err := api.GetMe(ctx)
	if err != nil {
		logger.Warn("getMe failed; accepting commands for any bot", "error", err)
		return
	}
	host.SetBotUsername(me.Username)
	logger.Info("telegram bot identified", "username", me.Username)
}

func envLines(cfg config.Config) []string {
	return []string{
		"BOT_TOKEN=" + cfg.BotToken,
		"BOT_TRANSPORT=" + cfg.BotTransport,
		"WEBHOOK_URL=" + cfg.WebhookURL,
		"WEBHOOK_LISTEN_ADDR=" + cfg.WebhookListenAddr,
		"BOT_POLLING_INTERVAL_SECONDS=" + strconv.Itoa(cfg.BotPollingIntervalS),
		"DATA_DIR=" + cfg.DataDir,
		"PLUGIN_CONFIG=" + cfg.PluginConfigPath,
		todo.EnvServerURL + "=" + cfg.TodoServerURLEnv,
		"HEALTH_PORT=" + strconv.Itoa(cfg.HealthPort),
		"LOG_LEVEL=" + cfg.LogLevel,
	}
}
