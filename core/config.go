package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		WorkDir          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail string
		DefaultFromName  string
		RollbarToken     string
		SendgridApiKey   string

		PasswordResetTimeoutDelta time.Duration

		Database DatabaseConfig
		Server   ServerConfig
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Driver        string // postgres (lib/pq) | pgx
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		DisableReqLogs            bool
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func (sc ServerConfig) Address() string {
	return net.JoinHostPort(sc.Host, sc.Port)
}

func (c *Config) DefaultFromAddress() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromEmail}
}

// IsInMemory reports whether the app runs against the in-memory store.
func (c *Config) IsInMemory() bool {
	return c.Database.Engine == "memory"
}

// NewConfig loads config/.env.<env> (if it exists) and reads the environment into a Config.
// Environment variables are prefixed with the environment name, e.g: PROD_SECRETKEY.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "MathInsight")
	v.SetDefault("workDir", ".")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "MathInsight")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "mathinsight")
	v.SetDefault("database_user", "mathinsight")
	v.SetDefault("database_disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8000")
	v.SetDefault("server_debugHost", "0.0.0.0:4000")
	v.SetDefault("server_readTimeout", 5*time.Second)
	v.SetDefault("server_writeTimeout", 5*time.Second)
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_jwtRefreshExpirationDelta", 4*7*24*time.Hour)

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(v.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		WorkDir:                   v.GetString("workDir"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		DefaultFromName:           v.GetString("defaultFromName"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database_engine")),
			Driver:        strings.ToLower(v.GetString("database_driver")),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			DisableTLS:    v.GetBool("database_disableTLS"),
		},
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Port:                      v.GetString("server_port"),
			DebugHost:                 v.GetString("server_debugHost"),
			DisableReqLogs:            v.GetBool("server_disableReqLogs"),
			ReadTimeout:               v.GetDuration("server_readTimeout"),
			WriteTimeout:              v.GetDuration("server_writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
		},
	}

	if err := conf.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func (c *Config) validate() error {
	if c.Env != "PROD" {
		return nil
	}
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		vala.StringNotEmpty(c.RollbarToken, "rollbarToken"),
		vala.StringNotEmpty(c.SendgridApiKey, "sendgridApiKey"),
		vala.StringNotEmpty(c.Database.Password, "database_password"),
	).Check()
	if err != nil {
		return fmt.Errorf("invalid %s config: %w", c.Env, err)
	}
	return nil
}
