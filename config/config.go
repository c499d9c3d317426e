package config

import "time"

type Config struct {
	Web    Web
	DB     DB
	Cors   Cors
	Rate   Rate
	Paypal Paypal
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:tienda"`
	DisableTLS bool   `conf:"default:true"`
}

type Cors struct {
	Origin string `conf:"default:"`
}

type Rate struct {
	Burst    int     `conf:"default:20"`
	Expiry   int     `conf:"default:5"`
	LimitRPS float64 `conf:"default:10"`
}

// Paypal configures the post-checkout payment collaborator. Leaving the
// client id empty disables it.
type Paypal struct {
	ClientID string `conf:"default:"`
	Secret   string `conf:"default:,mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}
