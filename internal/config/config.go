// Package config loads runtime configuration from environment variables.
//
// Everything the services need is read once at process boot into a single
// Config value and passed down by reference. No package reads os.Getenv on
// its own — that keeps the OAuth client, mailer, and token issuer free of
// ambient global state and makes tests trivial to parameterise.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all runtime configuration for the Riskinn API.
type Config struct {
	Addr   string `env:"ADDR,default=:8080"`
	DBPath string `env:"DB_PATH,default=data/riskinn.db"`

	// Session credentials.
	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTExpiry time.Duration `env:"JWT_EXPIRES_IN,default=720h"`

	// Registration OTP.
	OTPLength int           `env:"OTP_LENGTH,default=6"`
	OTPExpiry time.Duration `env:"OTP_EXPIRES_IN,default=10m"`

	// Password policy. BcryptCost is overridable so tests can use the
	// bcrypt minimum instead of the production work factor.
	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH,default=6"`
	BcryptCost        int `env:"BCRYPT_COST,default=12"`

	// Password reset tokens.
	ResetTokenExpiry time.Duration `env:"RESET_TOKEN_EXPIRES_IN,default=10m"`

	// Outbound email (SMTP).
	EmailHost        string `env:"EMAIL_HOST"`
	EmailPort        int    `env:"EMAIL_PORT,default=587"`
	EmailUser        string `env:"EMAIL_USER"`
	EmailPassword    string `env:"EMAIL_PASS"`
	EmailFromName    string `env:"EMAIL_FROM_NAME,default=RiskInn"`
	EmailFromAddress string `env:"EMAIL_FROM_ADDRESS,default=noreply@riskinn.com"`

	// Google OAuth.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	// Browser-facing redirect targets for the OAuth flow.
	FrontendURL      string `env:"FRONTEND_URL,default=http://localhost:3000"`
	FrontendLoginURL string `env:"FRONTEND_LOGIN_URL,default=http://localhost:3000/login"`

	// Object storage for uploads.
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"AWS_REGION,default=us-east-1"`
	S3Bucket    string `env:"S3_BUCKET_NAME"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoogleConfigured reports whether all three OAuth settings are present.
// The server still boots without them; the Google routes return a
// configuration error instead.
func (c Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleCallbackURL != ""
}
