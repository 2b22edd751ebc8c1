package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIConfigured   = errors.New("no API endpoint configured, use 'shopadmin config set api <url>' or --api")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")
	ErrInvalidTokenStore = errors.New("invalid token store, expected memory, file, keyring or nats")
)

// Authentication errors.
var (
	ErrNotAuthenticated  = errors.New("not authenticated, use 'shopadmin login' first")
	ErrCaptchaRequired   = errors.New("captcha code is required")
	ErrTooManyAttempts   = errors.New("too many failed captcha attempts")
	ErrEmailRequired     = errors.New("email is required")
	ErrPasswordRequired  = errors.New("password is required")
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
)

// Argument errors.
var (
	ErrInvalidID        = errors.New("invalid id, expected a positive integer")
	ErrNameRequired     = errors.New("--name flag is required")
	ErrImageConflict    = errors.New("--image and --remove-image cannot be used together")
	ErrDeleteNotConfirm = errors.New("deletion not confirmed, pass --force to skip the prompt")
)
