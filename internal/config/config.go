// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// AppEnv is the application environment ("development", "production").
	AppEnv string `mapstructure:"APP_ENV"`
	// AppSecret signs session and second-factor tokens. Must be changed from the default in production.
	AppSecret string `mapstructure:"APP_SECRET"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DB_URL"`
	// HTTPAddr is the listen address for the health and metrics endpoints.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	// SessionTTLSeconds is the session token lifetime in seconds.
	SessionTTLSeconds int `mapstructure:"SESSION_TTL"`
	// OTPTokenTTLSeconds is the lifetime of the short-lived second-factor setup/verify tokens.
	OTPTokenTTLSeconds int `mapstructure:"OTP_TOKEN_TTL"`
	// OTPIssuer is the issuer label embedded in otpauth:// enrollment URIs.
	OTPIssuer string `mapstructure:"OTP_ISSUER"`
	// OTPActionTTLMinutes is the elevation grant lifetime; <= 0 disables the elevation requirement.
	OTPActionTTLMinutes int `mapstructure:"OTP_ACTION_TTL_MINUTES"`

	// LoginMaxFails is the consecutive-failure threshold before an account lock is set.
	LoginMaxFails int `mapstructure:"LOGIN_MAX_FAILS"`
	// LoginLockMinutes is how long a lock lasts once the threshold is reached.
	LoginLockMinutes int `mapstructure:"LOGIN_LOCK_MINUTES"`

	// LDAPURL is the directory address (ldap:// or ldaps://).
	LDAPURL string `mapstructure:"LDAP_URL"`
	// LDAPBindDN and LDAPBindPassword are the service-bind credentials.
	LDAPBindDN       string `mapstructure:"LDAP_BIND_DN"`
	LDAPBindPassword string `mapstructure:"LDAP_BIND_PASSWORD"`
	// LDAPBaseDN is the search base for all directory queries.
	LDAPBaseDN string `mapstructure:"LDAP_BASE_DN"`
	// LDAPCACert is a path to a PEM CA bundle for ldaps; empty uses system roots.
	LDAPCACert string `mapstructure:"LDAP_CA_CERT"`
	// LDAPTLSVerify controls certificate validation for ldaps connections.
	LDAPTLSVerify bool `mapstructure:"LDAP_TLS_VERIFY"`
	// AdminGroupDN is the directory group whose members may hold the admin role.
	AdminGroupDN string `mapstructure:"ADMIN_GROUP_DN"`

	// SMSCodeTTLSeconds is the one-time code lifetime for both channels.
	SMSCodeTTLSeconds int `mapstructure:"SMS_CODE_TTL"`
	// SMSSendIntervalSeconds is the minimum gap between sends per (subject, scene).
	SMSSendIntervalSeconds int `mapstructure:"SMS_SEND_INTERVAL"`
	// SMSAutoRetry enables the failed-delivery redrive worker.
	SMSAutoRetry bool `mapstructure:"SMS_AUTO_RETRY"`
	// SMSRetryIntervalSeconds is the redrive worker poll interval.
	SMSRetryIntervalSeconds int `mapstructure:"SMS_RETRY_INTERVAL"`

	// AliyunAccessKeyID/Secret sign SMS gateway calls.
	AliyunAccessKeyID     string `mapstructure:"ALIYUN_ACCESS_KEY_ID"`
	AliyunAccessKeySecret string `mapstructure:"ALIYUN_ACCESS_KEY_SECRET"`
	// AliyunSignName is the registered SMS signature.
	AliyunSignName string `mapstructure:"ALIYUN_SMS_SIGN_NAME"`
	// AliyunTemplateReset is the template for reset/change verification codes.
	AliyunTemplateReset string `mapstructure:"ALIYUN_SMS_TEMPLATE_RESET"`
	// AliyunTemplateNotify is the template for password-expiry notifications.
	AliyunTemplateNotify string `mapstructure:"ALIYUN_SMS_TEMPLATE_NOTIFY"`

	// PasswordExpiryEnable turns the expiry-notification worker on.
	PasswordExpiryEnable bool `mapstructure:"PASSWORD_EXPIRY_ENABLE"`
	// PasswordExpiryDays is a comma-separated list of day thresholds (e.g. "7,3,1").
	PasswordExpiryDays string `mapstructure:"PASSWORD_EXPIRY_DAYS"`
	// PasswordExpiryCheckIntervalSeconds is the expiry worker poll interval.
	PasswordExpiryCheckIntervalSeconds int `mapstructure:"PASSWORD_EXPIRY_CHECK_INTERVAL"`

	// SMTP settings for the email one-time-code channel.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	// SMTPStartTLS enables opportunistic transport encryption after connect.
	SMTPStartTLS bool `mapstructure:"SMTP_TLS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_SECRET", "change-me")
	v.SetDefault("DB_URL", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SESSION_TTL", 1800)
	v.SetDefault("OTP_TOKEN_TTL", 300)
	v.SetDefault("OTP_ISSUER", "DirectoryConsole")
	v.SetDefault("OTP_ACTION_TTL_MINUTES", 10)
	v.SetDefault("LOGIN_MAX_FAILS", 5)
	v.SetDefault("LOGIN_LOCK_MINUTES", 10)
	v.SetDefault("LDAP_URL", "")
	v.SetDefault("LDAP_BIND_DN", "")
	v.SetDefault("LDAP_BIND_PASSWORD", "")
	v.SetDefault("LDAP_BASE_DN", "")
	v.SetDefault("LDAP_CA_CERT", "")
	v.SetDefault("LDAP_TLS_VERIFY", true)
	v.SetDefault("ADMIN_GROUP_DN", "")
	v.SetDefault("SMS_CODE_TTL", 300)
	v.SetDefault("SMS_SEND_INTERVAL", 60)
	v.SetDefault("SMS_AUTO_RETRY", false)
	v.SetDefault("SMS_RETRY_INTERVAL", 300)
	v.SetDefault("ALIYUN_ACCESS_KEY_ID", "")
	v.SetDefault("ALIYUN_ACCESS_KEY_SECRET", "")
	v.SetDefault("ALIYUN_SMS_SIGN_NAME", "")
	v.SetDefault("ALIYUN_SMS_TEMPLATE_RESET", "")
	v.SetDefault("ALIYUN_SMS_TEMPLATE_NOTIFY", "")
	v.SetDefault("PASSWORD_EXPIRY_ENABLE", false)
	v.SetDefault("PASSWORD_EXPIRY_DAYS", "7,3,1")
	v.SetDefault("PASSWORD_EXPIRY_CHECK_INTERVAL", 3600)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_TLS", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AppSecret == "" {
		return nil, errors.New("config: APP_SECRET must be set")
	}
	if cfg.AppEnv == "production" && cfg.AppSecret == "change-me" {
		return nil, errors.New("config: APP_SECRET must not be the default in production")
	}
	if cfg.LoginMaxFails <= 0 {
		cfg.LoginMaxFails = 5
	}
	if cfg.LoginLockMinutes <= 0 {
		cfg.LoginLockMinutes = 10
	}
	if cfg.SMSCodeTTLSeconds <= 0 {
		cfg.SMSCodeTTLSeconds = 300
	}

	return &cfg, nil
}

// SessionTTL returns the session token lifetime as a duration. Returns 30m if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLSeconds <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// OTPTokenTTL returns the setup/verify token lifetime. Returns 5m if unset or invalid.
func (c *Config) OTPTokenTTL() time.Duration {
	if c.OTPTokenTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.OTPTokenTTLSeconds) * time.Second
}

// LoginLock returns the lockout duration applied once the failure threshold is hit.
func (c *Config) LoginLock() time.Duration {
	return time.Duration(c.LoginLockMinutes) * time.Minute
}

// ElevationTTL returns the elevation grant lifetime; zero disables the requirement.
func (c *Config) ElevationTTL() time.Duration {
	if c.OTPActionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.OTPActionTTLMinutes) * time.Minute
}

// ExpiryDayThresholds parses PASSWORD_EXPIRY_DAYS into a sorted, deduplicated list.
// Malformed entries are skipped.
func (c *Config) ExpiryDayThresholds() []int {
	seen := map[int]bool{}
	var out []int
	for _, part := range strings.Split(c.PasswordExpiryDays, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// SMSConfigured reports whether the SMS gateway has the required settings for delivery.
func (c *Config) SMSConfigured() bool {
	return c.AliyunAccessKeyID != "" && c.AliyunAccessKeySecret != "" &&
		c.AliyunSignName != "" && c.AliyunTemplateReset != ""
}

// SMTPConfigured reports whether email delivery has the required settings.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}
