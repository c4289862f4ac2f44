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

package repository

import (
	"context"

	"github.com/tomoncle/heron/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// ReadRepository defines query operations for a generic entity type.
// Conditions are expressed with types.Conditions and compiled into WHERE
// clauses against the entity's table schema.
type ReadRepository[T any] interface {
	Find(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*T, error)

	FindAndCount(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*T, int, error)

	FindOne(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*T, error)

	FindOneOrFail(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*T, error)

	// Lookup fetches at most limit rows matching conditions, with no
	// relations or ordering. It exists for cardinality probes that only
	// need to distinguish zero, one, or many matches.
	Lookup(ctx context.Context, conditions *types.Conditions, limit int) ([]*T, error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// WriteRepository defines mutation operations for a generic entity type.
type WriteRepository[T any] interface {
	Insert(ctx context.Context, entity *T) error

	Upsert(ctx context.Context, entity *T, fields []string, conflictColumns []string) error

	// UpdateWhere sets the named columns from entity on every row matching
	// conditions and reports the number of affected rows.
	UpdateWhere(ctx context.Context, entity *T, columns []string, conditions *types.Conditions) (int64, error)

	// DeleteWhere removes every row matching conditions and reports the
	// number of affected rows.
	DeleteWhere(ctx context.Context, conditions *types.Conditions) (int64, error)
}

// EntityDescriptor exposes schema-level information about the entity type:
// building instances from column/value maps, reading and filtering by
// primary keys, and the underlying Bun table definition.
type EntityDescriptor[T any] interface {
	// NewEntity builds an entity from a map keyed by column names and
	// returns it along with the sorted list of columns that were set.
	NewEntity(values map[string]interface{}) (*T, []string, error)

	// IDs returns the primary key values of entity in schema order.
	IDs(entity *T) ([]interface{}, error)

	// PrimaryKeyFilter builds equality conditions matching the given
	// primary key values, in schema order.
	PrimaryKeyFilter(ids ...interface{}) (*types.Conditions, error)

	Table() *schema.Table
}

// Repository combines read, write, and schema operations and exposes Bun
// query builders for advanced use cases. WithConn derives a repository
// bound to another connection, typically a transaction or a read replica.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]
	EntityDescriptor[T]
	WithConn(conn bun.IDB) Repository[T]
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
