package config

import (
	"fmt"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type SyllabusConfig struct {
	Env         Environment
	Addr        string
	PrivateAddr string
	BaseUrl     string
	LogLevel    zerolog.Level
	Postgres    PostgresConfig
	Auth        AuthConfig
	Storage     StorageConfig
	LocalS3     LocalS3Config
	Uploads     UploadsConfig
	DevConfig   DevConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type AuthConfig struct {
	CookieDomain string
	CookieSecure bool
}

// Syllabus files live in an S3-compatible bucket. They are never made public;
// the website streams them after checking the viewer's access.
type StorageConfig struct {
	Key      string
	Secret   string
	Region   string
	Endpoint string
	Bucket   string
}

// The local S3 stand-in is for development only.
type LocalS3Config struct {
	Enabled bool
	Addr    string
	Dir     string
}

type UploadsConfig struct {
	MaxFileSize int
}

type DevConfig struct {
	LiveTemplates bool
}
