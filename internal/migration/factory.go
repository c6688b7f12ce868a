package migration

import (
	"fmt"

	appconfig "github.com/BaSui01/cacheflow/config"
)

// NewMigratorFromConfig creates a migrator for the SQL store configured
// in the application config.
func NewMigratorFromConfig(cfg *appconfig.Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return NewMigratorFromSQLConfig(cfg.Stores.SQL)
}

// NewMigratorFromSQLConfig creates a migrator from the SQL store section.
// An explicit DSN wins over the per-field connection settings, mirroring
// how the store itself resolves its connection string.
func NewMigratorFromSQLConfig(sqlCfg appconfig.SQLConfig) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(sqlCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	dbURL := sqlCfg.DSN
	if dbURL == "" {
		switch dbType {
		case DatabaseTypePostgres:
			dbURL = BuildDatabaseURL(
				dbType,
				sqlCfg.Host,
				sqlCfg.Port,
				sqlCfg.Name,
				sqlCfg.User,
				sqlCfg.Password,
				sqlCfg.SSLMode,
			)
		case DatabaseTypeMySQL:
			dbURL = BuildDatabaseURL(
				dbType,
				sqlCfg.Host,
				sqlCfg.Port,
				sqlCfg.Name,
				sqlCfg.User,
				sqlCfg.Password,
				"",
			)
		case DatabaseTypeSQLite:
			// For SQLite the Name field is the database file path
			dbURL = BuildDatabaseURL(dbType, "", 0, sqlCfg.Name, "", "", "")
		default:
			return nil, fmt.Errorf("unsupported database type: %s", dbType)
		}
	}

	migCfg := &Config{
		DatabaseType: dbType,
		DatabaseURL:  dbURL,
		TableName:    "schema_migrations",
	}

	return NewMigrator(migCfg)
}

// NewMigratorFromURL creates a new migrator from a database URL
func NewMigratorFromURL(dbType, dbURL string) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}

	return NewMigrator(&Config{
		DatabaseType: dt,
		DatabaseURL:  dbURL,
		TableName:    "schema_migrations",
	})
}
