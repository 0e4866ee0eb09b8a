package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine     string
		Host       string
		Port       int
		User       string
		Password   string
		Name       string
		DisableTLS bool
	}

	RabbitMQConfig struct {
		URL      string
		Exchange string
	}

	ReconcileConfig struct {
		Schedule string // cron spec; empty disables the sweep
		Timeout  time.Duration
	}

	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string
		Env          string
		Build        string
		SecretKey    string
		RollbarToken string

		Server    ServerConfig
		Database  DatabaseConfig
		RabbitMQ  RabbitMQConfig
		Reconcile ReconcileConfig
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// NewConfig loads the app config from env vars (prefixed with the current ENV),
// after loading `config/.env.<env>` if it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Rudra Driving School")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "n3v-4m@9q!r8k$w2=hz&x7yb^p1(c5d)j6t*0fsl+ug")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbUser", "postgres")
	v.SetDefault("dbPassword", "postgres")
	v.SetDefault("dbName", "drivingschool")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("rabbitmqURL", "")
	v.SetDefault("rabbitmqExchange", "admissions")
	v.SetDefault("reconcileSchedule", "@every 30m")
	v.SetDefault("reconcileTimeout", 4*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:            v.GetString("serverAddress"),
			Host:               v.GetString("serverHost"),
			DebugHost:          v.GetString("serverDebugHost"),
			ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("dbEngine"),
			Host:       v.GetString("dbHost"),
			Port:       v.GetInt("dbPort"),
			User:       v.GetString("dbUser"),
			Password:   v.GetString("dbPassword"),
			Name:       v.GetString("dbName"),
			DisableTLS: v.GetBool("dbDisableTLS"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("rabbitmqURL"),
			Exchange: v.GetString("rabbitmqExchange"),
		},
		Reconcile: ReconcileConfig{
			Schedule: v.GetString("reconcileSchedule"),
			Timeout:  v.GetDuration("reconcileTimeout"),
		},
	}
}
