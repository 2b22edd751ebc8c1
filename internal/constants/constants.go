package constants

import "time"

// Configuration locations.
const (
	// ConfigDirName is the directory under $HOME holding CLI state.
	ConfigDirName = ".shopadmin"

	// ConfigFileName is the CLI configuration file.
	ConfigFileName = "config.yml"

	// TokenFileName is the default token file of the file token store.
	TokenFileName = "token.yml"

	// CaptchaFileName is the default file the captcha image is written to.
	CaptchaFileName = "captcha.png"
)

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and token files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for a single HTTP attempt.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as NATS connects.
	ShortHTTPTimeout = 10 * time.Second

	// RefreshTimeout bounds a shared token refresh, which outlives the
	// context of the caller that started it.
	RefreshTimeout = 15 * time.Second
)

// Retry limits.
const (
	// MaxCaptchaAttempts bounds interactive login retries after a captcha mismatch.
	MaxCaptchaAttempts = 3

	// DefaultRetryWaitMin is the minimum wait between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// API path constants.
const (
	APIPathLogin      = "/login"
	APIPathLogout     = "/logout"
	APIPathMe         = "/me"
	APIPathRefresh    = "/refresh"
	APIPathCaptcha    = "/captcha"
	APIPathProducts   = "/products"
	APIPathCategories = "/categories"
)

// Header constants.
const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"

	BearerPrefix     = "Bearer "
	ContentTypeJSON  = "application/json"
	DefaultUserAgent = "shopadmin-go/1.0"
)

// Token store constants.
const (
	TokenStoreMemory  = "memory"
	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
	TokenStoreNATS    = "nats"

	// KeyringService is the keyring service name for stored tokens.
	KeyringService = "shopadmin"

	// DefaultNATSBucket is the KV bucket holding session tokens.
	DefaultNATSBucket = "shopadmin_sessions"
)

// Format constants.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// UI and display constants.
const (
	NotAvailable = "N/A"
	None         = "none"
	MaskedSecret = "***"

	// ExpiresSoonWindow marks a token as about to expire.
	ExpiresSoonWindow = 5 * time.Minute

	// StringTruncationLimit is the number of characters kept when masking tokens.
	StringTruncationLimit = 4
)
