package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// NewCaptchaCommand creates the captcha command.
func NewCaptchaCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "captcha",
		Short: "Fetch a login captcha",
		Long:  "Fetch a one-time captcha challenge and write its image to a file. Pass the code to 'shopadmin login --captcha'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			path, err := captchaFilePath(file)
			if err != nil {
				return err
			}

			captcha, err := sess.client.FetchCaptcha(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch captcha: %w", err)
			}

			err = writeCaptcha(captcha, path)
			if err != nil {
				return err
			}

			result := map[string]string{"file": path}

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return outputJSON(cmd.OutOrStdout(), result)
			case constants.FormatYAML:
				return outputYAML(cmd.OutOrStdout(), result)
			default:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Captcha image written to %s\n", path)

				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "where to write the captcha image (default is next to the config file)")

	return cmd
}

// writeCaptcha decodes the captcha data URI into path.
func writeCaptcha(captcha *shop.Captcha, path string) error {
	_, data, err := captcha.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode captcha image: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create captcha directory: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write captcha image: %w", err)
	}

	return nil
}
