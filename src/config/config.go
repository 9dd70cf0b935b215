package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Defaults are suitable for local development. Anything can be overridden by a
// .env file in the working directory or by SYLLABUS_* environment variables,
// e.g. SYLLABUS_POSTGRES_PASSWORD or SYLLABUS_STORAGE_BUCKET.
var Config = SyllabusConfig{
	Env:         Dev,
	Addr:        ":9001",
	PrivateAddr: ":9002",
	BaseUrl:     "http://localhost:9001",
	LogLevel:    zerolog.TraceLevel,
	Postgres: PostgresConfig{
		User:     "syllabus",
		Password: "password",
		Hostname: "localhost",
		Port:     5432,
		DbName:   "syllabus",
		LogLevel: tracelog.LogLevelWarn,
		MinConn:  2,
		MaxConn:  8,
	},
	Auth: AuthConfig{
		CookieDomain: "localhost",
		CookieSecure: false,
	},
	Storage: StorageConfig{
		Key:      "dev",
		Secret:   "dev",
		Region:   "us-east-1",
		Endpoint: "http://localhost:9003",
		Bucket:   "syllabi",
	},
	LocalS3: LocalS3Config{
		Enabled: true,
		Addr:    ":9003",
		Dir:     "./tmp/s3",
	},
	Uploads: UploadsConfig{
		MaxFileSize: 20 * 1024 * 1024,
	},
	DevConfig: DevConfig{
		LiveTemplates: false,
	},
}

func init() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
	}

	v := viper.New()
	v.SetEnvPrefix("syllabus")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyOverrides(v, &Config)
}

func applyOverrides(v *viper.Viper, cfg *SyllabusConfig) {
	str := func(key string, dest *string) {
		if v.IsSet(key) {
			*dest = v.GetString(key)
		}
	}
	boolean := func(key string, dest *bool) {
		if v.IsSet(key) {
			*dest = v.GetBool(key)
		}
	}
	integer := func(key string, dest *int) {
		if v.IsSet(key) {
			*dest = v.GetInt(key)
		}
	}

	var env string
	str("env", &env)
	if env != "" {
		cfg.Env = Environment(env)
	}
	str("addr", &cfg.Addr)
	str("privateaddr", &cfg.PrivateAddr)
	str("baseurl", &cfg.BaseUrl)

	var logLevel string
	str("loglevel", &logLevel)
	if logLevel != "" {
		if level, err := zerolog.ParseLevel(logLevel); err == nil {
			cfg.LogLevel = level
		} else {
			fmt.Fprintf(os.Stderr, "ignoring bad log level %q: %v\n", logLevel, err)
		}
	}

	str("postgres.user", &cfg.Postgres.User)
	str("postgres.password", &cfg.Postgres.Password)
	str("postgres.hostname", &cfg.Postgres.Hostname)
	integer("postgres.port", &cfg.Postgres.Port)
	str("postgres.dbname", &cfg.Postgres.DbName)

	str("auth.cookiedomain", &cfg.Auth.CookieDomain)
	boolean("auth.cookiesecure", &cfg.Auth.CookieSecure)

	str("storage.key", &cfg.Storage.Key)
	str("storage.secret", &cfg.Storage.Secret)
	str("storage.region", &cfg.Storage.Region)
	str("storage.endpoint", &cfg.Storage.Endpoint)
	str("storage.bucket", &cfg.Storage.Bucket)

	boolean("locals3.enabled", &cfg.LocalS3.Enabled)
	str("locals3.addr", &cfg.LocalS3.Addr)
	str("locals3.dir", &cfg.LocalS3.Dir)

	integer("uploads.maxfilesize", &cfg.Uploads.MaxFileSize)
	boolean("devconfig.livetemplates", &cfg.DevConfig.LiveTemplates)
}
