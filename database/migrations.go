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

	"github.com/uptrace/bun"
)

// MigrationManager creates tables for every registered model, in registration
// order. It intentionally does not alter existing tables.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
}

// NewMigrationManager returns a migration manager for the given database.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	return &MigrationManager{db: db, logger: logger}
}

// RunMigrations creates missing tables for all registered models.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	if m.db == nil {
		return fmt.Errorf("database not initialized")
	}

	for _, model := range Models() {
		if _, err := m.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
		if m.logger != nil {
			m.logger.Debug("Migrated model table", "model", fmt.Sprintf("%T", model))
		}
	}
	return nil
}
