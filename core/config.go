package core

import (
	"log"
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
		AppName  string
		Env      string // DEV (default), TEST, QA, PROD
		Build    string
		Debug    bool
		TestMode bool

		SendgridApiKey   string
		RollbarToken     string
		FrontendBaseURL  string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Media    MediaConfig
		Upload   UploadConfig
	}

	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		URI  string
		Name string
	}

	MediaConfig struct {
		CloudinaryURL string
	}

	UploadConfig struct {
		MaxFiles    int
		MaxFileSize int64
		TempDir     string
	}
)

func (c ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Kelasku")
	conf.SetDefault("build", "dev")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("databaseURI", "mongodb://localhost:27017")
	conf.SetDefault("databaseName", "kelasku")
	conf.SetDefault("uploadMaxFiles", 5)
	conf.SetDefault("uploadMaxFileSize", int64(10<<20)) // 10MB
	conf.SetDefault("uploadTempDir", os.TempDir())

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:          conf.GetString("appName"),
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			Port:            conf.GetString("serverPort"),
			DebugHost:       conf.GetString("serverDebugHost"),
			ShutdownTimeout: conf.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			URI:  conf.GetString("databaseURI"),
			Name: conf.GetString("databaseName"),
		},
		Media: MediaConfig{
			CloudinaryURL: conf.GetString("cloudinaryURL"),
		},
		Upload: UploadConfig{
			MaxFiles:    conf.GetInt("uploadMaxFiles"),
			MaxFileSize: conf.GetInt64("uploadMaxFileSize"),
			TempDir:     conf.GetString("uploadTempDir"),
		},
	}
}
