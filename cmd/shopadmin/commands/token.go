package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the session token",
		Long:  "Commands for inspecting and refreshing the stored session token",
	}

	cmd.AddCommand(newTokenStatusCommand())
	cmd.AddCommand(newTokenRefreshCommand())

	return cmd
}

func newTokenStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show token status and expiration",
		Long:  "Display the stored token, masked, and its expiration when the token is a JWT. Does not contact the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(context.Background())
			if err != nil {
				return err
			}
			defer sess.Close()

			status := buildTokenStatus(sess.config, sess.client.Token(), time.Now())

			return displayTokenStatus(cmd.OutOrStdout(), status)
		},
	}
}

func newTokenRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the session token",
		Long:  "Exchange the stored token for a fresh one. A failed refresh clears the session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			err = sess.requireLogin()
			if err != nil {
				return err
			}

			token, err := sess.client.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("failed to refresh token: %w", err)
			}

			return displayTokenStatus(cmd.OutOrStdout(), buildTokenStatus(sess.config, token, time.Now()))
		},
	}
}

// tokenStatus is the displayable state of a stored token.
type tokenStatus struct {
	API           string `json:"api"                      yaml:"api"`
	TokenStore    string `json:"token_store"              yaml:"token_store"`
	Authenticated bool   `json:"authenticated"            yaml:"authenticated"`
	Token         string `json:"token,omitempty"          yaml:"token,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"     yaml:"expires_at,omitempty"`
	ExpiryStatus  string `json:"expiry_status,omitempty"  yaml:"expiry_status,omitempty"`
	TimeToExpiry  string `json:"time_to_expiry,omitempty" yaml:"time_to_expiry,omitempty"`
}

func buildTokenStatus(config *Config, token string, now time.Time) *tokenStatus {
	status := &tokenStatus{
		API:           config.API,
		TokenStore:    config.TokenStore,
		Authenticated: token != "",
	}

	if token == "" {
		return status
	}

	status.Token = maskToken(token)

	expiresAt, err := decodeJWTExpiration(token)
	if err != nil {
		status.ExpiryStatus = "Unknown expiration"

		return status
	}

	status.ExpiresAt = expiresAt.Format(time.RFC3339)

	remaining := expiresAt.Sub(now)

	switch {
	case remaining <= 0:
		status.ExpiryStatus = "Expired"
	case remaining <= constants.ExpiresSoonWindow:
		status.ExpiryStatus = "Expires soon"
	default:
		status.ExpiryStatus = "Valid"
	}

	status.TimeToExpiry = remaining.Round(time.Second).String()

	return status
}

// decodeJWTExpiration reads the exp claim without verifying the signature.
// Session tokens are opaque; this only succeeds when one happens to be a JWT.
func decodeJWTExpiration(token string) (time.Time, error) {
	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading exp claim: %w", err)
	}

	if exp == nil {
		return time.Time{}, constants.ErrNoExpirationClaim
	}

	return exp.Time, nil
}

// maskToken keeps the first and last few characters of a token.
func maskToken(token string) string {
	keep := constants.StringTruncationLimit
	if len(token) <= 2*keep {
		return constants.MaskedSecret
	}

	return token[:keep] + "..." + token[len(token)-keep:]
}

func displayTokenStatus(out io.Writer, status *tokenStatus) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return outputJSON(out, status)
	case constants.FormatYAML:
		return outputYAML(out, status)
	default:
		rows := [][]string{
			{"API", status.API},
			{"Token Store", status.TokenStore},
			{"Authenticated", strconv.FormatBool(status.Authenticated)},
		}

		if status.Token != "" {
			rows = append(rows, []string{"Token", status.Token})
		}

		if status.ExpiresAt != "" {
			rows = append(rows, []string{"Expires At", status.ExpiresAt}, []string{"Time To Expiry", status.TimeToExpiry})
		}

		if status.ExpiryStatus != "" {
			rows = append(rows, []string{"Status", status.ExpiryStatus})
		}

		return renderTable(out, []string{"Property", "Value"}, rows)
	}
}
