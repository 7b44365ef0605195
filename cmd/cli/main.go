package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/cashflow/internal/adapter/http/dto"
	"github.com/iho/cashflow/internal/adapter/http/middleware"
	"github.com/iho/cashflow/internal/infrastructure/logger"
	"github.com/iho/cashflow/internal/infrastructure/postgres"
)

type options struct {
	ledgerURL  string
	balanceURL string
	timeout    time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "cashflow-cli",
		Short:         "Cash flow CLI tool",
		Long:          `A command line interface for registering transactions, reading daily balances and managing the schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.ledgerURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().StringVar(&opts.balanceURL, "balance-url", "http://localhost:8081", "Base URL of the balance API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(transactionCmd(opts), balanceCmd(opts), migrateCmd())

	return rootCmd
}

func transactionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transaction",
		Short: "Transaction operations",
	}

	var (
		date, amount, typ, description, idempotencyKey string
	)

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a credit or debit",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]any{
				"date":        date,
				"amount":      json.Number(amount),
				"type":        typ,
				"description": description,
			})
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}

			headers := map[string]string{}
			if idempotencyKey != "" {
				headers[middleware.IdempotencyKeyHeader] = idempotencyKey
			}

			var resp dto.RegisterTransactionResponse
			if err := doJSON(cmd.Context(), opts, http.MethodPost, opts.ledgerURL+"/api/v1/transactions", body, headers, &resp); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.TransactionID)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&date, "date", time.Now().UTC().Format(dto.DateLayout), "Transaction date (YYYY-MM-DD or RFC 3339)")
	registerCmd.Flags().StringVar(&amount, "amount", "", "Amount, greater than zero")
	registerCmd.Flags().StringVar(&typ, "type", "", "credit or debit")
	registerCmd.Flags().StringVar(&description, "description", "", "Free text, up to 200 characters")
	registerCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header value")
	_ = registerCmd.MarkFlagRequired("amount")
	_ = registerCmd.MarkFlagRequired("type")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.TransactionResponse
			if err := doJSON(cmd.Context(), opts, http.MethodGet, opts.ledgerURL+"/api/v1/transactions/"+url.PathEscape(args[0]), nil, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.AddCommand(registerCmd, getCmd)
	return cmd
}

func balanceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Daily balance operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <YYYY-MM-DD>",
		Short: "Show the consolidated balance of a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.Parse(dto.DateLayout, args[0]); err != nil {
				return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", args[0])
			}

			var resp dto.DailyBalanceResponse
			if err := doJSON(cmd.Context(), opts, http.MethodGet, opts.balanceURL+"/api/v1/daily-balances/"+args[0], nil, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.AddCommand(getCmd)
	return cmd
}

func migrateCmd() *cobra.Command {
	var databaseURL, path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("database URL is required (--database-url or DATABASE_URL)")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&path, "path", "internal/infrastructure/postgres/migrations", "Migrations directory")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrations(databaseURL, path, cliLogger(cmd))
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrationsDown(databaseURL, path, cliLogger(cmd))
		},
	}

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return logger.New(logger.Config{Format: "console", Output: cmd.ErrOrStderr()})
}

// doJSON sends a request and decodes a 2xx JSON body into out. Error bodies
// are reported with their status.
func doJSON(ctx context.Context, opts *options, method, target string, body []byte, headers map[string]string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 200))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
