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
	"sync"

	"github.com/uptrace/bun"
)

// DefaultDatabaseName is the registry key used by InitDB.
const DefaultDatabaseName = "default"

var (
	registryMu  sync.RWMutex
	connections = make(map[string]*Connection)
	defaultName string

	modelsMu   sync.RWMutex
	modelTypes []interface{}
)

// RegisterModels records Bun models shared by every database in the registry.
// Connections register them with Bun on connect, and startup migrations create
// their tables in registration order, so register referenced tables first.
func RegisterModels(models ...interface{}) {
	modelsMu.Lock()
	defer modelsMu.Unlock()
	modelTypes = append(modelTypes, models...)
}

// Models returns the registered models in registration order.
func Models() []interface{} {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	result := make([]interface{}, len(modelTypes))
	copy(result, modelTypes)
	return result
}

// Connection pairs the primary database with an optional read replica for
// one named database. Reads go to the replica when configured; writes and
// read-after-write always go to the primary.
type Connection struct {
	name    string
	primary AbstractDatabaseManager
	replica AbstractDatabaseManager
}

// Name returns the registry name of the connection.
func (c *Connection) Name() string { return c.name }

// Primary returns the Bun handle of the primary database.
func (c *Connection) Primary() *bun.DB { return c.primary.GetDB() }

// Read returns the Bun handle reads should use: the replica when one is
// configured, otherwise the primary.
func (c *Connection) Read() *bun.DB {
	if c.replica != nil {
		return c.replica.GetDB()
	}
	return c.primary.GetDB()
}

// HealthCheck reports the primary's health.
func (c *Connection) HealthCheck(ctx context.Context) *HealthStatus {
	return c.primary.HealthCheck(ctx)
}

// Stats reports the primary's connection pool statistics.
func (c *Connection) Stats() *DBStats { return c.primary.GetStats() }

// RunMigrations runs migrations against the primary.
func (c *Connection) RunMigrations(ctx context.Context) error {
	return c.primary.RunMigrations(ctx)
}

// Close disconnects the primary and the replica.
func (c *Connection) Close() error {
	err := c.primary.Disconnect()
	if c.replica != nil {
		if rerr := c.replica.Disconnect(); err == nil {
			err = rerr
		}
	}
	return err
}

// RegisterDatabase connects the database described by cfg and stores it in
// the registry under name. The first registered connection becomes the
// default. Registering an existing name returns an error.
func RegisterDatabase(ctx context.Context, name string, cfg *Config) (*Connection, error) {
	if name == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := connections[name]; exists {
		return nil, fmt.Errorf("database %q already registered", name)
	}

	conn, err := NewDatabaseFactory().CreateConnection(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	conn.Primary().RegisterModel(Models()...)
	if conn.replica != nil {
		conn.Read().RegisterModel(Models()...)
	}

	connections[name] = conn
	if defaultName == "" {
		defaultName = name
	}
	return conn, nil
}

// InitRegistry registers every database in the registry configuration.
func InitRegistry(ctx context.Context, cfg *RegistryConfig) error {
	if cfg == nil || len(cfg.Databases) == 0 {
		return fmt.Errorf("registry configuration cannot be empty")
	}
	for name, dbCfg := range cfg.Databases {
		if _, err := RegisterDatabase(ctx, name, dbCfg); err != nil {
			return fmt.Errorf("failed to register database %q: %w", name, err)
		}
	}
	if cfg.Default != "" {
		registryMu.Lock()
		if _, ok := connections[cfg.Default]; !ok {
			registryMu.Unlock()
			return fmt.Errorf("default database %q is not configured", cfg.Default)
		}
		defaultName = cfg.Default
		registryMu.Unlock()
	}
	return nil
}

// GetConnection returns the named connection; an empty name selects the
// default connection.
func GetConnection(name string) (*Connection, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if name == "" {
		name = defaultName
	}
	if name == "" {
		return nil, fmt.Errorf("no database registered")
	}
	conn, ok := connections[name]
	if !ok {
		return nil, fmt.Errorf("database %q is not registered", name)
	}
	return conn, nil
}

// InitDB registers cfg under the default name and returns its primary Bun
// handle (backward compatible single-database entrypoint).
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn, err := RegisterDatabase(context.Background(), DefaultDatabaseName, cfg)
	if err != nil {
		return nil, err
	}
	return conn.Primary(), nil
}

// GetDB returns the default connection's primary Bun handle, or nil when no
// database has been registered.
func GetDB() *bun.DB {
	conn, err := GetConnection("")
	if err != nil {
		return nil
	}
	return conn.Primary()
}

// CloseDB closes the default connection and removes it from the registry.
func CloseDB() error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if defaultName == "" {
		return nil
	}
	conn, ok := connections[defaultName]
	if !ok {
		return nil
	}
	delete(connections, defaultName)
	defaultName = ""
	for name := range connections {
		defaultName = name
		break
	}
	return conn.Close()
}

// CloseAll closes every registered connection and clears the registry.
func CloseAll() error {
	registryMu.Lock()
	defer registryMu.Unlock()

	var firstErr error
	for name, conn := range connections {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(connections, name)
	}
	defaultName = ""
	return firstErr
}

// GetHealthStatus returns the default connection's health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	conn, err := GetConnection("")
	if err != nil {
		return &HealthStatus{
			Healthy:   false,
			Connected: false,
			LastError: "Database not initialized",
		}
	}
	return conn.HealthCheck(ctx)
}

// GetDatabaseStats returns the default connection's pool statistics.
func GetDatabaseStats() *DBStats {
	conn, err := GetConnection("")
	if err != nil {
		return &DBStats{}
	}
	return conn.Stats()
}

// RunMigrations executes migrations against the default connection.
func RunMigrations() error {
	conn, err := GetConnection("")
	if err != nil {
		return fmt.Errorf("database not initialized")
	}
	return conn.RunMigrations(context.Background())
}
