package main

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"jan-server/services/helpdesk-api/internal/infrastructure/cache"
	"jan-server/services/helpdesk-api/internal/infrastructure/telegram"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook",
	Long:  `Manage the webhook URL Telegram delivers bot updates to.`,
}

var webhookSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Point the bot at a webhook URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookSet,
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook",
	RunE:  runWebhookDelete,
}

var webhookInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current webhook status",
	RunE:  runWebhookInfo,
}

func init() {
	webhookCmd.AddCommand(webhookSetCmd)
	webhookCmd.AddCommand(webhookDeleteCmd)
	webhookCmd.AddCommand(webhookInfoCmd)

	webhookSetCmd.Flags().Bool("drop-pending", false, "Drop updates queued while no webhook was set")
	webhookSetCmd.Flags().String("secret", "", "Secret token header value (default: TELEGRAM_WEBHOOK_SECRET)")
	webhookDeleteCmd.Flags().Bool("drop-pending", false, "Drop queued updates")
}

func telegramClient(cmd *cobra.Command) (*telegram.Client, *cliEnv, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, nil, err
	}
	if cfg.TelegramBotToken == "" {
		return nil, nil, errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	files, err := cache.NewMemoryCache(16)
	if err != nil {
		return nil, nil, err
	}
	return telegram.NewClient(telegram.Config{
		Token:   cfg.TelegramBotToken,
		BaseURL: cfg.TelegramAPIBaseURL,
		Timeout: cfg.TelegramTimeout,
	}, files, cliLogger(cmd)), cfg, nil
}

func runWebhookSet(cmd *cobra.Command, args []string) error {
	target, err := url.ParseRequestURI(args[0])
	if err != nil || target.Scheme != "https" {
		return fmt.Errorf("webhook url must be an absolute https url, got %q", args[0])
	}
	tg, cfg, err := telegramClient(cmd)
	if err != nil {
		return err
	}
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = cfg.TelegramWebhookSecret
	}
	dropPending, _ := cmd.Flags().GetBool("drop-pending")

	if err := tg.SetWebhook(cmd.Context(), target.String(), secret, dropPending); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "webhook set to %s\n", target)
	return nil
}

func runWebhookDelete(cmd *cobra.Command, args []string) error {
	tg, _, err := telegramClient(cmd)
	if err != nil {
		return err
	}
	dropPending, _ := cmd.Flags().GetBool("drop-pending")
	if err := tg.DeleteWebhook(cmd.Context(), dropPending); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
	return nil
}

func runWebhookInfo(cmd *cobra.Command, args []string) error {
	tg, _, err := telegramClient(cmd)
	if err != nil {
		return err
	}
	info, err := tg.GetWebhookInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	out, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode webhook info: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
