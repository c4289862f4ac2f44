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

package heron

import (
	"context"

	"github.com/tomoncle/heron/database"
	"github.com/tomoncle/heron/mapping"
	"github.com/tomoncle/heron/repository"
	"github.com/tomoncle/heron/types"

	"github.com/uptrace/bun"
)

// UpsertOptions tunes Upsert behavior. Fields lists the write-schema columns
// updated on conflict (defaults to every column set from the input values);
// ConflictColumns lists the conflict target (defaults to the primary key).
type UpsertOptions struct {
	Fields          []string
	ConflictColumns []string
}

// Service is a generic entity service between a request-handling layer and
// the ORM. R is the read-side entity returned from queries and refetches; W
// is the write-side entity mutations are applied to. When both sides share
// one schema, use NewService and a single type.
//
// Input values are maps keyed by read-schema column names; the configured
// mapping translates them to the write schema before any mutation.
type Service[R, W any] interface {
	// Get returns the single entity matching conditions, or nil, nil when
	// nothing matches.
	Get(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*R, error)

	// GetOrFail returns the single entity matching conditions, or a
	// NoResultsFoundError when nothing matches.
	GetOrFail(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*R, error)

	// List returns all entities matching conditions.
	List(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*R, error)

	// ListAndCount returns matching entities along with the total count.
	ListAndCount(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*R, int, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[R], error)

	// Create inserts a new entity built from values and returns it refetched
	// from the primary database.
	Create(ctx context.Context, values map[string]interface{}, options *types.FindOptions) (*R, error)

	// CreateNoResult inserts a new entity without refetching it.
	CreateNoResult(ctx context.Context, values map[string]interface{}) error

	// Upsert inserts or updates an entity built from values and returns it
	// refetched from the primary database.
	Upsert(ctx context.Context, values map[string]interface{}, upsert *UpsertOptions, options *types.FindOptions) (*R, error)

	// UpsertNoResult inserts or updates an entity without refetching it.
	UpsertNoResult(ctx context.Context, values map[string]interface{}, upsert *UpsertOptions) error

	// Update modifies the single entity matching conditions and returns it
	// refetched from the primary database. Conditions matching zero records
	// fail with NoResultsFoundError, more than one with
	// ConditionsTooBroadError; in both cases nothing is written. Only the
	// columns present in values are written; fields mutated by model hooks
	// outside that set are not persisted.
	Update(ctx context.Context, conditions *types.Conditions, values map[string]interface{}, options *types.FindOptions) (*R, error)

	// UpdateNoResult modifies the single entity matching conditions without
	// refetching it.
	UpdateNoResult(ctx context.Context, conditions *types.Conditions, values map[string]interface{}) error

	// Delete removes the single entity matching conditions and reports
	// whether a row was removed. Cardinality rules match Update.
	Delete(ctx context.Context, conditions *types.Conditions) (bool, error)

	// DeleteMany removes every entity matching conditions and returns the
	// affected count. No cardinality validation is performed.
	DeleteMany(ctx context.Context, conditions *types.Conditions) (int64, error)

	// WithDatabase returns a service bound to another registered database.
	// The receiver is never modified.
	WithDatabase(name string) (Service[R, W], error)

	// SelectBuilder returns a Bun select query builder on the read side.
	SelectBuilder() *bun.SelectQuery

	// InsertBuilder returns a Bun insert query builder on the write side.
	InsertBuilder() *bun.InsertQuery

	// UpdateBuilder returns a Bun update query builder on the write side.
	UpdateBuilder() *bun.UpdateQuery

	// DeleteBuilder returns a Bun delete query builder on the write side.
	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[R, W any] struct {
	writeDB *bun.DB
	mapping *mapping.Mapping
	logger  database.Logger

	readRepo    repository.Repository[R]
	primaryRepo repository.Repository[R]
	writeRepo   repository.Repository[W]
}

// New returns a Service bound to the given connection. Reads use the
// connection's replica when one is configured; mutations and refetches
// always use the primary. mapping may be nil when read and write schemas
// are identical.
func New[R, W any](conn *database.Connection, m *mapping.Mapping) Service[R, W] {
	return NewWithDB[R, W](conn.Read(), conn.Primary(), m)
}

// NewWithDB returns a Service over explicit read and write handles. Pass the
// same handle twice when there is no replica.
func NewWithDB[R, W any](read, write *bun.DB, m *mapping.Mapping) Service[R, W] {
	return &baseServiceImpl[R, W]{
		writeDB:     write,
		mapping:     m,
		logger:      database.GetLogger(),
		readRepo:    repository.NewRepository[R](read),
		primaryRepo: repository.NewRepository[R](write),
		writeRepo:   repository.NewRepository[W](write),
	}
}

// NewService returns a single-schema Service bound to the named registered
// database. Pass an empty name for the default database.
func NewService[T any](databaseName string) (Service[T, T], error) {
	conn, err := database.GetConnection(databaseName)
	if err != nil {
		return nil, err
	}
	return New[T, T](conn, nil), nil
}

func (s *baseServiceImpl[R, W]) WithDatabase(name string) (Service[R, W], error) {
	conn, err := database.GetConnection(name)
	if err != nil {
		return nil, err
	}
	return New[R, W](conn, s.mapping), nil
}

// selectRepo picks the read repository, honoring FindOptions.UseWrite.
func (s *baseServiceImpl[R, W]) selectRepo(options *types.FindOptions) repository.Repository[R] {
	if options != nil && options.UseWrite {
		return s.primaryRepo
	}
	return s.readRepo
}

func (s *baseServiceImpl[R, W]) Get(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*R, error) {
	if options != nil && options.FailOnEmpty {
		return s.GetOrFail(ctx, conditions, options)
	}
	return s.selectRepo(options).FindOne(ctx, conditions, options)
}

func (s *baseServiceImpl[R, W]) GetOrFail(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*R, error) {
	entity, err := s.selectRepo(options).FindOne(ctx, conditions, options)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, &NoResultsFoundError{Conditions: conditions}
	}
	return entity, nil
}

func (s *baseServiceImpl[R, W]) List(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*R, error) {
	return s.selectRepo(options).Find(ctx, conditions, options)
}

func (s *baseServiceImpl[R, W]) ListAndCount(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*R, int, error) {
	return s.selectRepo(options).FindAndCount(ctx, conditions, options)
}

func (s *baseServiceImpl[R, W]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[R], error) {
	return s.readRepo.Page(ctx, page)
}

func (s *baseServiceImpl[R, W]) Create(ctx context.Context, values map[string]interface{}, options *types.FindOptions) (*R, error) {
	entity, err := s.insert(ctx, values)
	if err != nil {
		return nil, err
	}
	return s.fetchAfterWrite(ctx, entity, options)
}

func (s *baseServiceImpl[R, W]) CreateNoResult(ctx context.Context, values map[string]interface{}) error {
	_, err := s.insert(ctx, values)
	return err
}

func (s *baseServiceImpl[R, W]) insert(ctx context.Context, values map[string]interface{}) (*W, error) {
	entity, _, err := s.writeRepo.NewEntity(s.mapping.Apply(values))
	if err != nil {
		return nil, err
	}
	if err := s.writeRepo.Insert(ctx, entity); err != nil {
		return nil, translateQueryError(err, wrapCreateError)
	}
	return entity, nil
}

func (s *baseServiceImpl[R, W]) Upsert(ctx context.Context, values map[string]interface{}, upsert *UpsertOptions, options *types.FindOptions) (*R, error) {
	entity, err := s.save(ctx, values, upsert)
	if err != nil {
		return nil, err
	}
	return s.fetchAfterWrite(ctx, entity, options)
}

func (s *baseServiceImpl[R, W]) UpsertNoResult(ctx context.Context, values map[string]interface{}, upsert *UpsertOptions) error {
	_, err := s.save(ctx, values, upsert)
	return err
}

func (s *baseServiceImpl[R, W]) save(ctx context.Context, values map[string]interface{}, upsert *UpsertOptions) (*W, error) {
	entity, columns, err := s.writeRepo.NewEntity(s.mapping.Apply(values))
	if err != nil {
		return nil, err
	}
	fields := columns
	var conflictColumns []string
	if upsert != nil {
		if len(upsert.Fields) > 0 {
			fields = upsert.Fields
		}
		conflictColumns = upsert.ConflictColumns
	}
	if err := s.writeRepo.Upsert(ctx, entity, fields, conflictColumns); err != nil {
		return nil, translateQueryError(err, wrapCreateError)
	}
	return entity, nil
}

func (s *baseServiceImpl[R, W]) Update(ctx context.Context, conditions *types.Conditions, values map[string]interface{}, options *types.FindOptions) (*R, error) {
	record, err := s.applyUpdate(ctx, conditions, values)
	if err != nil {
		return nil, err
	}
	ids, err := s.recomputeIdentifiers(record, values)
	if err != nil {
		return nil, err
	}
	filter, err := s.primaryRepo.PrimaryKeyFilter(ids...)
	if err != nil {
		return nil, err
	}
	return s.fetchByFilter(ctx, filter, options)
}

func (s *baseServiceImpl[R, W]) UpdateNoResult(ctx context.Context, conditions *types.Conditions, values map[string]interface{}) error {
	_, err := s.applyUpdate(ctx, conditions, values)
	return err
}

// applyUpdate validates conditions and performs the write inside a single
// transaction on the primary, so the cardinality check and the mutation see
// one consistent snapshot. It returns the matched record as it was before
// the update.
func (s *baseServiceImpl[R, W]) applyUpdate(ctx context.Context, conditions *types.Conditions, values map[string]interface{}) (*R, error) {
	writeValues := s.mapping.Apply(values)
	writeConditions := s.mapping.ApplyConditions(conditions)
	var record *R
	err := s.writeDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := s.validateConditions(ctx, tx, conditions)
		if err != nil {
			return err
		}
		record = found
		entity, columns, err := s.writeRepo.NewEntity(writeValues)
		if err != nil {
			return err
		}
		if _, err := s.writeRepo.WithConn(tx).UpdateWhere(ctx, entity, columns, writeConditions); err != nil {
			return translateQueryError(err, wrapUpdateError)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *baseServiceImpl[R, W]) Delete(ctx context.Context, conditions *types.Conditions) (bool, error) {
	writeConditions := s.mapping.ApplyConditions(conditions)
	var affected int64
	err := s.writeDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.validateConditions(ctx, tx, conditions); err != nil {
			return err
		}
		count, err := s.writeRepo.WithConn(tx).DeleteWhere(ctx, writeConditions)
		if err != nil {
			return translateQueryError(err, wrapDeleteError)
		}
		affected = count
		return nil
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *baseServiceImpl[R, W]) DeleteMany(ctx context.Context, conditions *types.Conditions) (int64, error) {
	count, err := s.writeRepo.DeleteWhere(ctx, s.mapping.ApplyConditions(conditions))
	if err != nil {
		return 0, translateQueryError(err, wrapDeleteError)
	}
	return count, nil
}

// validateConditions enforces exactly-one cardinality for single-record
// mutations: 0 matches fail with NoResultsFoundError, 2 or more with
// ConditionsTooBroadError. The lookup is capped at two rows since the exact
// match count is irrelevant past that point.
func (s *baseServiceImpl[R, W]) validateConditions(ctx context.Context, conn bun.IDB, conditions *types.Conditions) (*R, error) {
	if conditions.IsZero() {
		return nil, &ConditionsTooBroadError{Conditions: conditions}
	}
	matches, err := s.primaryRepo.WithConn(conn).Lookup(ctx, conditions, 2)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, &NoResultsFoundError{Conditions: conditions}
	case 1:
		return matches[0], nil
	default:
		s.logger.Warn("refusing single-record mutation, conditions are too broad", "conditions", conditions.String())
		return nil, &ConditionsTooBroadError{Conditions: conditions}
	}
}

// fetchAfterWrite refetches the written entity from the primary, filtering
// by the identifiers Bun populated on the write-side model.
func (s *baseServiceImpl[R, W]) fetchAfterWrite(ctx context.Context, entity *W, options *types.FindOptions) (*R, error) {
	ids, err := s.writeRepo.IDs(entity)
	if err != nil {
		return nil, err
	}
	filter, err := s.primaryRepo.PrimaryKeyFilter(ids...)
	if err != nil {
		return nil, err
	}
	return s.fetchByFilter(ctx, filter, options)
}

// fetchByFilter reads from the primary regardless of caller options, so the
// refetch observes the write that was just committed. Caller options still
// shape the result: relations, columns, and orders are merged in.
func (s *baseServiceImpl[R, W]) fetchByFilter(ctx context.Context, filter *types.Conditions, options *types.FindOptions) (*R, error) {
	merged := (&types.FindOptions{UseWrite: true}).Merge(options)
	entity, err := s.primaryRepo.FindOne(ctx, filter, merged)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, &NoResultsFoundError{Conditions: filter}
	}
	return entity, nil
}

// recomputeIdentifiers derives the primary key values of the updated record
// from the pre-update record overlaid with the new values, so updates that
// change a primary key column still refetch the right row.
func (s *baseServiceImpl[R, W]) recomputeIdentifiers(record *R, values map[string]interface{}) ([]interface{}, error) {
	ids, err := s.primaryRepo.IDs(record)
	if err != nil {
		return nil, err
	}
	for i, pk := range s.primaryRepo.Table().PKs {
		if value, ok := values[pk.Name]; ok {
			ids[i] = value
		}
	}
	return ids, nil
}

func (s *baseServiceImpl[R, W]) SelectBuilder() *bun.SelectQuery {
	return s.readRepo.NewSelect()
}

func (s *baseServiceImpl[R, W]) InsertBuilder() *bun.InsertQuery {
	return s.writeRepo.NewInsert()
}

func (s *baseServiceImpl[R, W]) UpdateBuilder() *bun.UpdateQuery {
	return s.writeRepo.NewUpdate()
}

func (s *baseServiceImpl[R, W]) DeleteBuilder() *bun.DeleteQuery {
	return s.writeRepo.NewDelete()
}
