package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:3000"`     // storefront, used in provider callbacks
	APIBaseURL  string `env:"API_BASE_URL" envDefault:"http://localhost:8080"` // this service, used for paypal return
	Currency    string `env:"CURRENCY" envDefault:"MXN"`

	Database Database `envPrefix:"DB_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Paypal   Paypal   `envPrefix:"PAYPAL_"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"mysql"` // mysql | sqlite
	URL    string `env:"URL"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

// Redis is optional. An empty Addr disables the in-flight idempotency lock.
type Redis struct {
	Addr           string        `env:"ADDR"`
	DB             int           `env:"DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"2m"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
