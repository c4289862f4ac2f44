/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

// BaseDatabaseFactory builds named connections (primary plus optional read
// replica) from configuration, applying environment overrides.
type BaseDatabaseFactory struct {
	logger Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateConnection constructs and connects the primary manager and, when a
// replica is configured, the read-replica manager for one named database.
func (f *BaseDatabaseFactory) CreateConnection(ctx context.Context, name string, cfg *Config) (*Connection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	if err := validateDatabaseType(cfg.ConnectionConfig.Type); err != nil {
		return nil, err
	}

	// Override sensitive config from environment variables
	f.overrideFromEnv(&cfg.ConnectionConfig)

	primary := NewDatabaseManager(&cfg.ConnectionConfig)
	primary.SetLogger(f.logger)
	if err := primary.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", name, err)
	}

	if cfg.MigrateOnStartup {
		if err := primary.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations for database %q: %w", name, err)
		}
	}

	conn := &Connection{name: name, primary: primary}

	if cfg.Replica != nil {
		replicaCfg := *cfg.Replica
		if replicaCfg.Type == "" {
			replicaCfg.Type = cfg.ConnectionConfig.Type
		}
		if err := validateDatabaseType(replicaCfg.Type); err != nil {
			return nil, err
		}
		replica := NewDatabaseManager(&replicaCfg)
		replica.SetLogger(f.logger)
		if err := replica.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to read replica of %q: %w", name, err)
		}
		conn.replica = replica
	}

	f.logger.Info("Database initialization completed!", "name", name, "replica", conn.replica != nil)
	return conn, nil
}

func validateDatabaseType(dbType string) error {
	supportedTypes := []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}
	for _, t := range supportedTypes {
		if dbType == t {
			return nil
		}
	}
	return fmt.Errorf("unsupported database type: %s, supported types: %v", dbType, supportedTypes)
}

// overrideFromEnv overrides configuration values from environment variables.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	// Database connection info
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if username := os.Getenv("DB_USERNAME"); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.SSLMode = sslmode
	}
	// Connection pool config
	if maxIdle := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil {
			cfg.MaxIdleConns = val
		}
	}
	if maxOpen := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			cfg.MaxOpenConns = val
		}
	}
	if maxLifetime := os.Getenv("DB_CONN_MAX_LIFETIME"); maxLifetime != "" {
		if val, err := strconv.Atoi(maxLifetime); err == nil {
			cfg.ConnMaxLifetime = time.Duration(val) * time.Second
		}
	}

	// Reconnect config
	if enableReconnect := os.Getenv("DB_ENABLE_RECONNECT"); enableReconnect != "" {
		cfg.EnableReconnect = enableReconnect == "true"
	}
	if reconnectInterval := os.Getenv("DB_RECONNECT_INTERVAL"); reconnectInterval != "" {
		if val, err := strconv.Atoi(reconnectInterval); err == nil {
			cfg.ReconnectInterval = time.Duration(val) * time.Second
		}
	}

	// Logging config
	if enableQueryLog := os.Getenv("DB_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		cfg.EnableQueryLog = enableQueryLog == "true"
	}
}
