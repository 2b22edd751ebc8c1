//go:build integration

package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fivetwenty-io/shopadmin/internal/testserver"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	API           string
	Email         string
	Password      string
	CaptchaCode   string
	ShopadminPath string
	Verbose       bool
}

// LoadTestConfig loads configuration from environment variables. Without
// SHOPADMIN_TEST_API the tests run against an in-process fake API.
func LoadTestConfig(t *testing.T) *TestConfig {
	t.Helper()

	config := &TestConfig{
		API:           os.Getenv("SHOPADMIN_TEST_API"),
		Email:         os.Getenv("SHOPADMIN_TEST_EMAIL"),
		Password:      os.Getenv("SHOPADMIN_TEST_PASSWORD"),
		CaptchaCode:   os.Getenv("SHOPADMIN_TEST_CAPTCHA"),
		ShopadminPath: getShopadminPath(),
		Verbose:       os.Getenv("SHOPADMIN_VERBOSE") == "true",
	}

	if config.API == "" {
		server := testserver.New()
		t.Cleanup(server.Close)

		config.API = server.URL
		config.Email = testserver.Email
		config.Password = testserver.Password
		config.CaptchaCode = testserver.CaptchaCode
	}

	return config
}

// getShopadminPath determines the path to the shopadmin binary.
func getShopadminPath() string {
	if path := os.Getenv("SHOPADMIN_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../shopadmin",
		"./shopadmin",
		"../shopadmin",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "shopadmin"
}

// SkipIfMissingConfig skips the test when the binary or a fixed captcha code
// is not available.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.ShopadminPath); err != nil {
		t.Skipf("shopadmin binary not found at %s, skipping integration test", config.ShopadminPath)
	}

	if config.CaptchaCode == "" {
		t.Skip("SHOPADMIN_TEST_CAPTCHA not set, skipping integration test")
	}
}

// CommandRunner runs shopadmin with an isolated config directory.
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		configFile: filepath.Join(t.TempDir(), "config.yml"),
		t:          t,
	}
}

// Run executes a shopadmin command and returns its output.
func (runner *CommandRunner) Run(args ...string) (string, string, error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a shopadmin command with stdin input.
func (runner *CommandRunner) RunWithInput(input string, args ...string) (string, string, error) {
	args = append([]string{"--config", runner.configFile}, args...)

	cmd := exec.Command(runner.config.ShopadminPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.ShopadminPath, strings.Join(args, " "))
	}

	err := cmd.Run()
	stdout := stdoutBuf.String()
	stderr := stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// SetupAPI points the isolated config at the API under test.
func (runner *CommandRunner) SetupAPI() error {
	_, stderr, err := runner.Run("config", "set", "api", runner.config.API)
	if err != nil {
		return &commandError{args: "config set api", stderr: stderr}
	}

	return nil
}

// Login logs in with the configured credentials.
func (runner *CommandRunner) Login() error {
	_, stderr, err := runner.Run("login",
		"--email", runner.config.Email,
		"--password", runner.config.Password,
		"--captcha", runner.config.CaptchaCode)
	if err != nil {
		return &commandError{args: "login", stderr: stderr}
	}

	return nil
}

type commandError struct {
	args   string
	stderr string
}

func (e *commandError) Error() string {
	return "shopadmin " + e.args + " failed: " + strings.TrimSpace(e.stderr)
}

// AssertJSONOutput verifies command output is valid JSON.
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, "{") && !strings.HasPrefix(output, "[") {
		t.Errorf("Output does not appear to be JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output is valid YAML.
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if strings.Contains(output, "---") || strings.Contains(output, ":") {
		return
	}

	t.Errorf("Output does not appear to be YAML: %s", output)
}
