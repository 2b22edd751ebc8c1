package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// prompter reads interactive answers from the command input.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()

	return &prompter{in: in, reader: bufio.NewReader(in), out: cmd.OutOrStdout()}
}

// interactive reports whether input comes from a terminal.
func (p *prompter) interactive() bool {
	f, ok := p.in.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *prompter) ask(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)

	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// askSecret reads without echo on a terminal and falls back to a plain line.
func (p *prompter) askSecret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.ask(label)
	}

	_, _ = fmt.Fprint(p.out, label)

	secret, err := term.ReadPassword(int(f.Fd()))

	_, _ = fmt.Fprintln(p.out)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(secret), nil
}

type loginOptions struct {
	email       string
	password    string
	captchaCode string
	captchaFile string
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the shop admin API",
		Long: `Authenticate with email, password and captcha code.

The captcha image is written to a file and its code is prompted for. On a
captcha mismatch a fresh challenge is fetched, up to three attempts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.captchaCode, "captcha", "", "captcha code of a challenge fetched with 'shopadmin captcha'")
	cmd.Flags().StringVar(&opts.captchaFile, "captcha-file", "", "where to write the captcha image (default is next to the config file)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	ctx := context.Background()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	p := newPrompter(cmd)

	credentials, err := promptCredentials(p, opts)
	if err != nil {
		return err
	}

	captchaFile, err := captchaFilePath(opts.captchaFile)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		if credentials.CaptchaCode == "" {
			credentials.CaptchaCode, err = promptCaptcha(ctx, sess.client, p, captchaFile)
			if err != nil {
				return err
			}
		}

		result, err := sess.client.Login(ctx, credentials)
		if err == nil {
			return outputLogin(cmd.OutOrStdout(), sess.config.API, credentials.Email, result)
		}

		if !errors.Is(err, shop.ErrCaptchaMismatch) {
			return fmt.Errorf("login failed: %w", describeFields(err))
		}

		if attempt >= constants.MaxCaptchaAttempts {
			return fmt.Errorf("%w: %w", constants.ErrTooManyAttempts, err)
		}

		if !p.interactive() && opts.captchaCode != "" {
			return fmt.Errorf("login failed: %w", err)
		}

		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Captcha did not match, fetching a new one")

		credentials.CaptchaCode = ""
	}
}

func promptCredentials(p *prompter, opts *loginOptions) (shop.Credentials, error) {
	credentials := shop.Credentials{
		Email:       opts.email,
		Password:    opts.password,
		CaptchaCode: opts.captchaCode,
	}

	var err error

	if credentials.Email == "" {
		credentials.Email, err = p.ask("Email: ")
		if err != nil {
			return credentials, err
		}
	}

	if credentials.Email == "" {
		return credentials, constants.ErrEmailRequired
	}

	if credentials.Password == "" {
		credentials.Password, err = p.askSecret("Password: ")
		if err != nil {
			return credentials, err
		}
	}

	if credentials.Password == "" {
		return credentials, constants.ErrPasswordRequired
	}

	return credentials, nil
}

// promptCaptcha fetches a challenge, writes its image and asks for the code.
func promptCaptcha(ctx context.Context, client shop.AuthClient, p *prompter, path string) (string, error) {
	captcha, err := client.FetchCaptcha(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captcha: %w", err)
	}

	err = writeCaptcha(captcha, path)
	if err != nil {
		return "", err
	}

	_, _ = fmt.Fprintf(p.out, "Captcha image written to %s\n", path)

	code, err := p.ask("Captcha code: ")
	if err != nil {
		return "", err
	}

	if code == "" {
		return "", constants.ErrCaptchaRequired
	}

	return code, nil
}

// describeFields appends server field errors to the message of err.
func describeFields(err error) error {
	var shopErr *shop.Error
	if !errors.As(err, &shopErr) || len(shopErr.Fields) == 0 {
		return err
	}

	details := make([]string, 0, len(shopErr.Fields))
	for _, name := range shopErr.FieldNames() {
		details = append(details, name+": "+shopErr.Fields[name])
	}

	return fmt.Errorf("%w (%s)", err, strings.Join(details, "; "))
}

func outputLogin(out io.Writer, api, email string, session *shop.Session) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return outputJSON(out, map[string]interface{}{"api": api, "user": session.User})
	case constants.FormatYAML:
		return outputYAML(out, map[string]interface{}{"api": api, "user": session.User})
	default:
		_, _ = fmt.Fprintf(out, "Successfully logged in to %s as %s\n", api, email)

		return nil
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the shop admin API",
		Long:  "Revoke the session on the server and clear the stored token. The local token is cleared even if the server cannot be reached.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			err = sess.client.Logout(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear stored token: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")

			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Long:  "Validate the session with the server and display the current user",
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

			payload, err := sess.client.Do(ctx, &shop.Request{
				Method:      "GET",
				Path:        constants.APIPathMe,
				ExpectsAuth: true,
			})
			if err != nil {
				if shop.IsUnauthorized(err) {
					return fmt.Errorf("%w: %w", constants.ErrNotAuthenticated, err)
				}

				return fmt.Errorf("failed to get current user: %w", err)
			}

			user, err := decodeUser(payload)
			if err != nil {
				return err
			}

			return outputUser(cmd.OutOrStdout(), user)
		},
	}
}

// decodeUser accepts {"user": {...}} or a bare user object.
func decodeUser(payload *shop.Payload) (shop.User, error) {
	var body map[string]interface{}

	err := payload.Decode(&body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	if nested, ok := body["user"].(map[string]interface{}); ok {
		return shop.User(nested), nil
	}

	return shop.User(body), nil
}

func outputUser(out io.Writer, user shop.User) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return outputJSON(out, user)
	case constants.FormatYAML:
		return outputYAML(out, user)
	default:
		keys := make([]string, 0, len(user))
		for key := range user {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		rows := make([][]string, 0, len(keys))
		for _, key := range keys {
			rows = append(rows, []string{key, fmt.Sprint(user[key])})
		}

		return renderTable(out, []string{"Property", "Value"}, rows)
	}
}

// captchaFilePath returns the file the captcha image is written to.
func captchaFilePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, constants.CaptchaFileName), nil
}
