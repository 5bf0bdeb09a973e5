package sqlstore

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
)

// Driver is a supported database backend.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// DefaultSQLiteFile is used when neither DB_HOST nor DB_NAME is set.
const DefaultSQLiteFile = "catering.db"

// Config describes how to reach the database. Nested under a DB field it
// reads the DB_* environment variables.
type Config struct {
	Driver   Driver `env:"DRIVER" usage:"Database driver: mysql, postgres (pgsql) or sqlite; detected when empty"`
	Host     string `env:"HOST" usage:"Database host; SQLite is used when empty"`
	Port     int    `env:"PORT" usage:"Database port; 3306 for mysql, 5432 for postgres when zero"`
	Name     string `env:"NAME" usage:"Database name, or SQLite file path"`
	User     string `env:"USER" usage:"Database user"`
	Password string `env:"PASS" usage:"Database password"`
	SSLMode  string `env:"SSLMODE" usage:"Postgres sslmode; require for managed hosts, disable otherwise"`
	MaxConns int32  `env:"MAX_CONNS" default:"10" usage:"Maximum open connections"`
}

// managedPostgresHosts are host fragments of hosted Postgres providers.
var managedPostgresHosts = []string{
	"supabase",
	"neon.tech",
	"render.com",
	"railway",
	"rlwy.net",
	"aivencloud",
	"elephantsql",
	"postgres.database.azure.com",
	"rds.amazonaws.com",
}

// IsManagedPostgres reports whether host belongs to a hosted Postgres
// provider.
func IsManagedPostgres(host string) bool {
	h := strings.ToLower(host)
	for _, frag := range managedPostgresHosts {
		if strings.Contains(h, frag) {
			return true
		}
	}
	return false
}

// ResolveDriver picks the backend. An explicit driver wins; without a host
// SQLite is used; managed Postgres hosts select Postgres; MySQL otherwise.
func (c Config) ResolveDriver() (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(string(c.Driver)))) {
	case "mysql":
		return DriverMySQL, nil
	case "postgres", "postgresql", "pgsql":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "":
	default:
		return "", errors.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}

	switch {
	case strings.TrimSpace(c.Host) == "":
		return DriverSQLite, nil
	case IsManagedPostgres(c.Host):
		return DriverPostgres, nil
	default:
		return DriverMySQL, nil
	}
}

// port returns the configured port or the driver default.
func (c Config) port(d Driver) int {
	if c.Port > 0 {
		return c.Port
	}
	if d == DriverPostgres {
		return 5432
	}
	return 3306
}

// sslMode returns the Postgres sslmode.
func (c Config) sslMode() string {
	if c.SSLMode != "" {
		return c.SSLMode
	}
	if IsManagedPostgres(c.Host) {
		return "require"
	}
	return "disable"
}

// DSN builds the driver-specific connection string.
func (c Config) DSN(d Driver) string {
	switch d {
	case DriverSQLite:
		if c.Name == "" {
			return DefaultSQLiteFile
		}
		return c.Name
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(c.Host, fmt.Sprint(c.port(d))),
			Path:   "/" + c.Name,
		}
		q := url.Values{}
		q.Set("sslmode", c.sslMode())
		u.RawQuery = q.Encode()
		return u.String()
	default:
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			c.User, c.Password, net.JoinHostPort(c.Host, fmt.Sprint(c.port(d))), c.Name)
	}
}
