package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/iho/folio/internal/adapter/http/dto"
	"github.com/iho/folio/internal/infrastructure/auth"
)

var (
	baseURL string
	timeout time.Duration
	token   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "folio-cli",
		Short:         "Folio CLI tool",
		Long:          `A command line interface for interacting with the Folio API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Folio API")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	cmd.PersistentFlags().StringVar(&token, "token", os.Getenv("FOLIO_TOKEN"), "Bearer token sent with every request")

	// Activity commands
	activitiesCmd := &cobra.Command{
		Use:   "activities",
		Short: "Activity operations",
	}
	activitiesCmd.AddCommand(importCmd())

	// Event commands
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Recalculation events",
	}
	eventsCmd.AddCommand(watchCmd())

	cmd.AddCommand(activitiesCmd, eventsCmd, recalculateCmd(), tokenCmd())
	return cmd
}

func importCmd() *cobra.Command {
	var (
		accountID string
		check     bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import activities from a JSON file into an account",
		Long: `Reads a JSON file holding either an array of import rows or an
object with an "activities" array, and posts it to the account. With --check
the rows are only validated and nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadImportFile(args[0])
			if err != nil {
				return err
			}

			path := "/api/v1/accounts/" + url.PathEscape(accountID) + "/imports"
			if check {
				path += "/check"
			}

			var resp dto.ImportResponse
			if err := doJSON(cmd.Context(), http.MethodPost, path, req, &resp); err != nil {
				return err
			}

			printJSON(cmd.OutOrStdout(), resp)
			if resp.Invalid > 0 {
				return fmt.Errorf("%d of %d rows are invalid", resp.Invalid, resp.Valid+resp.Invalid)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID to import into")
	cmd.Flags().BoolVar(&check, "check", false, "Validate rows without importing")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func recalculateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate",
		Short: "Request a full portfolio recalculation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]any
			if err := doJSON(cmd.Context(), http.MethodPost, "/api/v1/portfolio/recalculate", nil, &resp); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream recalculation requests as they are emitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchEvents(ctx, cmd.OutOrStdout(), accountID)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Only show requests touching this account")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		scope   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the server's JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			signed, err := auth.NewJWTManager(secret, ttl).Generate(subject, scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret")
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject")
	cmd.Flags().StringVar(&scope, "scope", "", "Optional scope claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// loadImportFile accepts either a bare array of rows or the request object.
func loadImportFile(path string) (*dto.ImportActivitiesRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	req := &dto.ImportActivitiesRequest{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &req.Activities)
	} else {
		err = json.Unmarshal(trimmed, req)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(req.Activities) == 0 {
		return nil, fmt.Errorf("%s contains no activities", path)
	}

	return req, nil
}

// doJSON sends body as JSON and decodes a 2xx response into out. Mutating
// requests carry a fresh Idempotency-Key so a retried command is safe.
func doJSON(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", ulid.Make().String())
	}
	setAuth(req.Header)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func watchEvents(ctx context.Context, w io.Writer, accountID string) error {
	target, err := eventsURL(baseURL, accountID)
	if err != nil {
		return err
	}

	header := http.Header{}
	setAuth(header)

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fmt.Fprintln(w, string(msg))
	}
}

// eventsURL turns the API base URL into the websocket stream URL.
func eventsURL(base, accountID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", base, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/events/ws"
	q := url.Values{}
	if accountID != "" {
		q.Set("account_id", accountID)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func setAuth(h http.Header) {
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(w, "Failed to encode output: %v\n", err)
	}
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
