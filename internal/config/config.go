package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/mailmaint/internal/security/secretbox"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda "dev".
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	// Control plane del cluster groupware (Admin REST API).
	ControlPlane struct {
		BaseURL string `yaml:"base_url"`
		// SharedSecret firma los bearer tokens HS256 de cada request.
		// Preferir shared_secret_enc (secretbox) en archivos commiteados.
		SharedSecret    string `yaml:"shared_secret"`
		SharedSecretEnc string `yaml:"shared_secret_enc"`
		Timeout         string `yaml:"timeout"`   // default 30s
		TokenTTL        string `yaml:"token_ttl"` // default 2m
	} `yaml:"controlplane"`

	Maintenance struct {
		// Requester se adjunta a cada cambio de component-state.
		Requester       string `yaml:"requester"`
		PollInterval    string `yaml:"poll_interval"`     // default 30s, fijo (sin backoff)
		MaxPollAttempts int    `yaml:"max_poll_attempts"` // 0 = ilimitado
	} `yaml:"maintenance"`

	// Record store opcional para el MaintenanceRecord (hand-off manual sigue
	// siendo el baseline; kind "none" lo desactiva).
	Records struct {
		Kind string `yaml:"kind"` // none | memory | fs | redis | postgres | etcd
		FS   struct {
			Dir string `yaml:"dir"`
		} `yaml:"fs"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
		Etcd struct {
			Endpoints []string `yaml:"endpoints"`
			Prefix    string   `yaml:"prefix"`
		} `yaml:"etcd"`
	} `yaml:"records"`

	// Status listener opcional (progreso + /metrics) durante el run.
	Status struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"status"`

	SMTP struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		PasswordEnc string `yaml:"password_enc"`
		From        string `yaml:"from"`
		TLS         string `yaml:"tls"` // auto|starttls|ssl|none
	} `yaml:"smtp"`

	// Notify: mail de resumen al terminar un plan (opcional).
	Notify struct {
		Enabled bool     `yaml:"enabled"`
		To      []string `yaml:"to"`
	} `yaml:"notify"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.ControlPlane.Timeout == "" {
		c.ControlPlane.Timeout = "30s"
	}
	if c.ControlPlane.TokenTTL == "" {
		c.ControlPlane.TokenTTL = "2m"
	}
	if c.Maintenance.Requester == "" {
		c.Maintenance.Requester = "Maintenance"
	}
	if c.Maintenance.PollInterval == "" {
		c.Maintenance.PollInterval = "30s"
	}
	if c.Records.Kind == "" {
		c.Records.Kind = "none"
	}
	if c.Status.Addr == "" {
		c.Status.Addr = ":9632"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}

	// CONTROL PLANE
	if v, ok := getEnvStr("CP_BASE_URL"); ok {
		c.ControlPlane.BaseURL = v
	}
	if v, ok := getEnvStr("CP_SHARED_SECRET"); ok {
		c.ControlPlane.SharedSecret = v
	}
	if v, ok := getEnvStr("CP_TIMEOUT"); ok {
		c.ControlPlane.Timeout = v
	}
	if v, ok := getEnvStr("CP_TOKEN_TTL"); ok {
		c.ControlPlane.TokenTTL = v
	}

	// MAINTENANCE
	if v, ok := getEnvStr("MAINT_REQUESTER"); ok {
		c.Maintenance.Requester = v
	}
	if v, ok := getEnvStr("MAINT_POLL_INTERVAL"); ok {
		c.Maintenance.PollInterval = v
	}
	if v, ok := getEnvInt("MAINT_MAX_POLL_ATTEMPTS"); ok {
		c.Maintenance.MaxPollAttempts = v
	}

	// RECORDS
	if v, ok := getEnvStr("RECORDS_KIND"); ok {
		c.Records.Kind = v
	}
	if v, ok := getEnvStr("RECORDS_FS_DIR"); ok {
		c.Records.FS.Dir = v
	}
	if v, ok := getEnvStr("RECORDS_REDIS_ADDR"); ok {
		c.Records.Redis.Addr = v
	}
	if v, ok := getEnvInt("RECORDS_REDIS_DB"); ok {
		c.Records.Redis.DB = v
	}
	if v, ok := getEnvStr("RECORDS_PG_DSN"); ok {
		c.Records.Postgres.DSN = v
	}
	if v, ok := getEnvCSV("RECORDS_ETCD_ENDPOINTS"); ok {
		c.Records.Etcd.Endpoints = v
	}

	// STATUS
	if v, ok := getEnvBool("STATUS_ENABLED"); ok {
		c.Status.Enabled = v
	}
	if v, ok := getEnvStr("STATUS_ADDR"); ok {
		c.Status.Addr = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}

	// NOTIFY
	if v, ok := getEnvBool("NOTIFY_ENABLED"); ok {
		c.Notify.Enabled = v
	}
	if v, ok := getEnvCSV("NOTIFY_TO"); ok {
		c.Notify.To = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// Validate chequea duraciones y enums que el resto del binario asume válidos.
func (c *Config) Validate() error {
	for name, s := range map[string]string{
		"controlplane.timeout":      c.ControlPlane.Timeout,
		"controlplane.token_ttl":    c.ControlPlane.TokenTTL,
		"maintenance.poll_interval": c.Maintenance.PollInterval,
	} {
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	switch c.Records.Kind {
	case "none", "memory", "fs", "redis", "postgres", "etcd":
	default:
		return fmt.Errorf("config: records.kind %q inválido", c.Records.Kind)
	}
	switch c.SMTP.TLS {
	case "auto", "starttls", "ssl", "none":
	default:
		return fmt.Errorf("config: smtp.tls %q inválido", c.SMTP.TLS)
	}
	if c.Maintenance.MaxPollAttempts < 0 {
		return fmt.Errorf("config: maintenance.max_poll_attempts no puede ser negativo")
	}
	return nil
}

// Dur parsea una duración ya validada por Validate.
func Dur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ControlPlaneSecret resuelve el shared secret: plano si está, si no
// descifra shared_secret_enc con la master key (secretbox).
func (c *Config) ControlPlaneSecret() (string, error) {
	if s := strings.TrimSpace(c.ControlPlane.SharedSecret); s != "" {
		return s, nil
	}
	if enc := strings.TrimSpace(c.ControlPlane.SharedSecretEnc); enc != "" {
		s, err := secretbox.Decrypt(enc)
		if err != nil {
			return "", fmt.Errorf("config: decrypt controlplane.shared_secret_enc: %w", err)
		}
		return s, nil
	}
	return "", fmt.Errorf("config: controlplane shared secret no configurado")
}

// SMTPPassword resuelve la password SMTP (plana o cifrada).
func (c *Config) SMTPPassword() (string, error) {
	if s := c.SMTP.Password; s != "" {
		return s, nil
	}
	if enc := strings.TrimSpace(c.SMTP.PasswordEnc); enc != "" {
		s, err := secretbox.Decrypt(enc)
		if err != nil {
			return "", fmt.Errorf("config: decrypt smtp.password_enc: %w", err)
		}
		return s, nil
	}
	return "", nil
}
