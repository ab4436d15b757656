package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		Debug           bool
		TestMode        bool
		WorkDir         string
		AppName         string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		defaultFromEmail string

		Server     ServerConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		Enrollment EnrollmentConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	EnrollmentConfig struct {
		SchoolID       string
		AcademicYearID string
		Backend        string // local | remote
		BackendURL     string
		BackendToken   string
		SubmitTimeout  time.Duration
		SessionStore   string // memory | redis
		SessionTTL     time.Duration
		SweepSchedule  string // cron spec
		// StrictCompletion re-runs the step validators after every patch and drops stale completion marks.
		StrictCompletion bool
	}
)

// Enrollment backends & session stores
const (
	BackendLocal  = "local"
	BackendRemote = "remote"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the app configuration from the environment.
// `config/.env.<env>` is loaded first if it exists.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	setDefaults(conf, env)
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		WorkDir:          wd,
		AppName:          conf.GetString("appName"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			Address:         conf.GetString("server.address"),
			DebugHost:       conf.GetString("server.debugHost"),
			ReadTimeout:     conf.GetDuration("server.readTimeout"),
			WriteTimeout:    conf.GetDuration("server.writeTimeout"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Address:  conf.GetString("redis.address"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
		},
		Enrollment: EnrollmentConfig{
			SchoolID:         conf.GetString("enrollment.schoolId"),
			AcademicYearID:   conf.GetString("enrollment.academicYearId"),
			Backend:          strings.ToLower(conf.GetString("enrollment.backend")),
			BackendURL:       conf.GetString("enrollment.backendURL"),
			BackendToken:     conf.GetString("enrollment.backendToken"),
			SubmitTimeout:    conf.GetDuration("enrollment.submitTimeout"),
			SessionStore:     strings.ToLower(conf.GetString("enrollment.sessionStore")),
			SessionTTL:       conf.GetDuration("enrollment.sessionTTL"),
			SweepSchedule:    conf.GetString("enrollment.sweepSchedule"),
			StrictCompletion: conf.GetBool("enrollment.strictCompletion"),
		},
	}
}

func setDefaults(conf *viper.Viper, env string) {
	conf.SetTypeByDefaultValue(true)

	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Masomo")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromEmail", "Masomo <noreply@localhost>")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.readTimeout", 5*time.Second)
	conf.SetDefault("server.writeTimeout", 45*time.Second) // > enrollment.submitTimeout
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "masomo")
	conf.SetDefault("database.user", "masomo")
	conf.SetDefault("database.password", "masomo")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("redis.address", "localhost:6379")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)

	conf.SetDefault("enrollment.schoolId", "")
	conf.SetDefault("enrollment.academicYearId", "")
	conf.SetDefault("enrollment.backend", BackendLocal)
	conf.SetDefault("enrollment.backendURL", "")
	conf.SetDefault("enrollment.backendToken", "")
	conf.SetDefault("enrollment.submitTimeout", 30*time.Second)
	conf.SetDefault("enrollment.sessionStore", SessionStoreMemory)
	conf.SetDefault("enrollment.sessionTTL", 24*time.Hour)
	conf.SetDefault("enrollment.sweepSchedule", "@every 15m")
	conf.SetDefault("enrollment.strictCompletion", false)
}
