package config

import (
	"errors"

	"github.com/goliatone/go-storefront-accounts"
)

// BaseConfig is the application configuration tree. Values load from
// config files and environment variables through go-config.
type BaseConfig struct {
	Server      *ServerConfig      `json:"server" koanf:"server"`
	Auth        *AuthConfig        `json:"auth" koanf:"auth"`
	Persistence *PersistenceConfig `json:"persistence" koanf:"persistence"`
	SMTP        *SMTPConfig        `json:"smtp" koanf:"smtp"`
}

type ServerConfig struct {
	Address  string `json:"address" koanf:"address"`
	BaseURL  string `json:"base_url" koanf:"base_url"`
	SiteName string `json:"site_name" koanf:"site_name"`
}

type PersistenceConfig struct {
	DSN string `json:"dsn" koanf:"dsn"`
}

type SMTPConfig struct {
	Host     string `json:"host" koanf:"host"`
	Port     int    `json:"port" koanf:"port"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
	From     string `json:"from" koanf:"from"`
}

// AuthConfig satisfies accounts.Config
type AuthConfig struct {
	SigningKey            string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod         string   `json:"signing_method" koanf:"signing_method"`
	ContextKey            string   `json:"context_key" koanf:"context_key"`
	TokenExpiration       int      `json:"token_expiration" koanf:"token_expiration"`
	ExtendedTokenDuration int      `json:"extended_token_duration" koanf:"extended_token_duration"`
	TokenLookup           string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme            string   `json:"auth_scheme" koanf:"auth_scheme"`
	Issuer                string   `json:"issuer" koanf:"issuer"`
	Audience              []string `json:"audience" koanf:"audience"`
	RejectedRouteKey      string   `json:"rejected_route_key" koanf:"rejected_route_key"`
	RejectedRouteDefault  string   `json:"rejected_route_default" koanf:"rejected_route_default"`
}

var _ accounts.Config = (*AuthConfig)(nil)

func (c *AuthConfig) GetSigningKey() string           { return c.SigningKey }
func (c *AuthConfig) GetSigningMethod() string        { return c.SigningMethod }
func (c *AuthConfig) GetContextKey() string           { return c.ContextKey }
func (c *AuthConfig) GetTokenExpiration() int         { return c.TokenExpiration }
func (c *AuthConfig) GetExtendedTokenDuration() int   { return c.ExtendedTokenDuration }
func (c *AuthConfig) GetTokenLookup() string          { return c.TokenLookup }
func (c *AuthConfig) GetAuthScheme() string           { return c.AuthScheme }
func (c *AuthConfig) GetIssuer() string               { return c.Issuer }
func (c *AuthConfig) GetAudience() []string           { return c.Audience }
func (c *AuthConfig) GetRejectedRouteKey() string     { return c.RejectedRouteKey }
func (c *AuthConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }

func (c *BaseConfig) GetServer() *ServerConfig {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	return c.Server
}

func (c *BaseConfig) GetAuth() *AuthConfig {
	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	return c.Auth
}

func (c *BaseConfig) GetPersistence() *PersistenceConfig {
	if c.Persistence == nil {
		c.Persistence = &PersistenceConfig{}
	}
	return c.Persistence
}

func (c *BaseConfig) GetSMTP() *SMTPConfig {
	if c.SMTP == nil {
		c.SMTP = &SMTPConfig{}
	}
	return c.SMTP
}

// Validate fills defaults and rejects configurations we cannot run with.
func (c *BaseConfig) Validate() error {
	srv := c.GetServer()
	if srv.Address == "" {
		srv.Address = ":8572"
	}
	if srv.BaseURL == "" {
		srv.BaseURL = "http://localhost:8572"
	}
	if srv.SiteName == "" {
		srv.SiteName = "Storefront"
	}

	auth := c.GetAuth()
	if auth.SigningKey == "" {
		return errors.New("auth.signing_key is required")
	}
	if auth.SigningMethod == "" {
		auth.SigningMethod = "HS256"
	}
	if auth.ContextKey == "" {
		auth.ContextKey = "jwt"
	}
	if auth.TokenExpiration == 0 {
		auth.TokenExpiration = 24
	}
	if auth.ExtendedTokenDuration == 0 {
		auth.ExtendedTokenDuration = 24 * 7
	}
	if auth.TokenLookup == "" {
		auth.TokenLookup = "cookie:" + auth.ContextKey
	}
	if auth.AuthScheme == "" {
		auth.AuthScheme = "Bearer"
	}
	if auth.Issuer == "" {
		auth.Issuer = srv.SiteName
	}
	if len(auth.Audience) == 0 {
		auth.Audience = []string{"web"}
	}
	if auth.RejectedRouteKey == "" {
		auth.RejectedRouteKey = "rejected_route"
	}
	if auth.RejectedRouteDefault == "" {
		auth.RejectedRouteDefault = "/"
	}

	if c.GetPersistence().DSN == "" {
		c.GetPersistence().DSN = "file:storefront.db?cache=shared&mode=rwc"
	}

	smtp := c.GetSMTP()
	if smtp.Port == 0 {
		smtp.Port = 587
	}
	if smtp.From == "" {
		smtp.From = "no-reply@localhost"
	}

	return nil
}
