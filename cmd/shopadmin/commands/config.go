package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
)

// Config represents the CLI configuration.
type Config struct {
	API        string  `json:"api,omitempty"         yaml:"api,omitempty"`
	Output     string  `json:"output"                yaml:"output"`
	Verbose    bool    `json:"verbose"               yaml:"verbose"`
	TokenStore string  `json:"token_store"           yaml:"token_store"`
	TokenFile  string  `json:"token_file,omitempty"  yaml:"token_file,omitempty"`
	NATSURL    string  `json:"nats_url,omitempty"    yaml:"nats_url,omitempty"`
	NATSBucket string  `json:"nats_bucket,omitempty" yaml:"nats_bucket,omitempty"`
	RetryMax   int     `json:"retry_max"             yaml:"retry_max"`
	RateLimit  float64 `json:"rate_limit"            yaml:"rate_limit"`
}

// configKey describes one settable configuration key.
type configKey struct {
	set   func(config *Config, value string) error
	unset func(config *Config)
}

var configKeys = map[string]configKey{
	"api": {
		set: func(c *Config, v string) error {
			c.API = v

			return nil
		},
		unset: func(c *Config) { c.API = "" },
	},
	"output": {
		set: func(c *Config, v string) error {
			switch v {
			case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
				c.Output = v

				return nil
			default:
				return fmt.Errorf("%w: output must be table, json or yaml", ErrInvalidValue)
			}
		},
		unset: func(c *Config) { c.Output = constants.FormatTable },
	},
	"verbose": {
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: verbose: %w", ErrInvalidValue, err)
			}

			c.Verbose = b

			return nil
		},
		unset: func(c *Config) { c.Verbose = false },
	},
	"token_store": {
		set: func(c *Config, v string) error {
			switch v {
			case constants.TokenStoreMemory, constants.TokenStoreFile, constants.TokenStoreKeyring, constants.TokenStoreNATS:
				c.TokenStore = v

				return nil
			default:
				return constants.ErrInvalidTokenStore
			}
		},
		unset: func(c *Config) { c.TokenStore = constants.TokenStoreFile },
	},
	"token_file": {
		set: func(c *Config, v string) error {
			c.TokenFile = v

			return nil
		},
		unset: func(c *Config) { c.TokenFile = "" },
	},
	"nats_url": {
		set: func(c *Config, v string) error {
			c.NATSURL = v

			return nil
		},
		unset: func(c *Config) { c.NATSURL = "" },
	},
	"nats_bucket": {
		set: func(c *Config, v string) error {
			c.NATSBucket = v

			return nil
		},
		unset: func(c *Config) { c.NATSBucket = "" },
	},
	"retry_max": {
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: retry_max must be a non-negative integer", ErrInvalidValue)
			}

			c.RetryMax = n

			return nil
		},
		unset: func(c *Config) { c.RetryMax = 0 },
	},
	"rate_limit": {
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("%w: rate_limit must be a non-negative number", ErrInvalidValue)
			}

			c.RateLimit = f

			return nil
		},
		unset: func(c *Config) { c.RateLimit = 0 },
	},
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the shopadmin CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return outputJSON(cmd.OutOrStdout(), config)
			case constants.FormatYAML:
				return outputYAML(cmd.OutOrStdout(), config)
			default:
				return displayConfigTable(cmd.OutOrStdout(), config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + configKeyList(),
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			handler, ok := configKeys[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			config := loadConfig()

			err := handler.set(config, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Set", key, value)
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Reset a configuration value to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			handler, ok := configKeys[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			config := loadConfig()
			handler.unset(config)

			err := saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Unset", key, "")
		},
	}
}

func configKeyList() string {
	keys := make([]string, 0, len(configKeys))
	for key := range configKeys {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return strings.Join(keys, ", ")
}

// loadConfig builds the effective configuration from the config file,
// SHOPADMIN_* environment variables and flags.
func loadConfig() *Config {
	config := &Config{
		API:        viper.GetString("api"),
		Output:     viper.GetString("output"),
		Verbose:    viper.GetBool("verbose"),
		TokenStore: viper.GetString("token_store"),
		TokenFile:  viper.GetString("token_file"),
		NATSURL:    viper.GetString("nats_url"),
		NATSBucket: viper.GetString("nats_bucket"),
		RetryMax:   viper.GetInt("retry_max"),
		RateLimit:  viper.GetFloat64("rate_limit"),
	}

	if config.Output == "" {
		config.Output = constants.FormatTable
	}

	if config.TokenStore == "" {
		config.TokenStore = constants.TokenStoreFile
	}

	return config
}

// configDir returns the directory holding CLI state: the directory of the
// config file in use, or ~/.shopadmin.
func configDir() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return filepath.Dir(configFile), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName), nil
}

// tokenFilePath returns the token file of the file token store.
func tokenFilePath(config *Config) (string, error) {
	if config.TokenFile != "" {
		return config.TokenFile, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, constants.TokenFileName), nil
}

func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}

		configFile = filepath.Join(dir, constants.ConfigFileName)
	}

	err := os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

func displayConfigTable(out io.Writer, config *Config) error {
	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")

	rows := [][]string{
		{"API", formatConfigValue(config.API)},
		{"Output", config.Output},
		{"Verbose", strconv.FormatBool(config.Verbose)},
		{"Token Store", config.TokenStore},
		{"Token File", formatConfigValue(config.TokenFile)},
		{"NATS URL", formatConfigValue(config.NATSURL)},
		{"NATS Bucket", formatConfigValue(config.NATSBucket)},
		{"Retry Max", strconv.Itoa(config.RetryMax)},
		{"Rate Limit", strconv.FormatFloat(config.RateLimit, 'f', -1, 64)},
	}

	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append config row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render config table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

// outputConfigUpdateResult outputs configuration update results in the requested format.
func outputConfigUpdateResult(out io.Writer, action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	switch viper.GetString("output") {
	case constants.FormatJSON:
		return outputJSON(out, result)
	case constants.FormatYAML:
		return outputYAML(out, result)
	default:
		rows := [][]string{{"Action", action}, {"Key", key}}
		if value != "" {
			rows = append(rows, []string{"Value", value})
		}

		return renderTable(out, []string{"Property", "Value"}, rows)
	}
}

func outputJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

func outputYAML(out io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(out)

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}

func renderTable(out io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(out)

	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}

	table.Header(cells...)

	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
