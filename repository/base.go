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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tomoncle/heron/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db   *bun.DB
	conn bun.IDB
}

// NewRepository returns a generic repository backed by the provided Bun DB.
func NewRepository[T any](db *bun.DB) Repository[T] {
	return &baseRepositoryImpl[T]{db: db, conn: db}
}

// WithConn derives a repository that issues queries through conn while
// keeping the schema and dialect of the original DB. Pass a bun.Tx to run
// queries inside a transaction.
func (r *baseRepositoryImpl[T]) WithConn(conn bun.IDB) Repository[T] {
	return &baseRepositoryImpl[T]{db: r.db, conn: conn}
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.conn.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.conn.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.conn.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.conn.NewDelete() }

func (r *baseRepositoryImpl[T]) Table() *schema.Table {
	return r.db.Table(reflect.TypeOf((*T)(nil)).Elem())
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*T, error) {
	entities := make([]*T, 0)
	query, err := r.buildSelect(&entities, conditions, options)
	if err != nil {
		return nil, err
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) FindAndCount(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) ([]*T, int, error) {
	entities := make([]*T, 0)
	query, err := r.buildSelect(&entities, conditions, options)
	if err != nil {
		return nil, 0, err
	}
	count, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entities, count, nil
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*T, error) {
	entity, err := r.FindOneOrFail(ctx, conditions, options)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entity, err
}

func (r *baseRepositoryImpl[T]) FindOneOrFail(ctx context.Context, conditions *types.Conditions, options *types.FindOptions) (*T, error) {
	var entity T
	query, err := r.buildSelect(&entity, conditions, options)
	if err != nil {
		return nil, err
	}
	if err := query.Limit(1).Scan(ctx); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) Lookup(ctx context.Context, conditions *types.Conditions, limit int) ([]*T, error) {
	entities := make([]*T, 0)
	query, err := applyConditions(r.conn.NewSelect().Model(&entities), r.Table(), conditions)
	if err != nil {
		return nil, err
	}
	if err := query.Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	entities := make([]*T, 0)
	query, err := applyConditions(r.conn.NewSelect().Model(&entities), r.Table(), pageRequest.GetConditions())
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, entity *T) error {
	_, err := r.conn.NewInsert().Model(entity).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, entity *T, fields []string, conflictColumns []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if r.db.HasFeature(feature.InsertOnConflict) {
		return r.upsertWithPostgresqlOrSQLite(ctx, entity, fields, conflictColumns)
	} else if r.db.HasFeature(feature.InsertOnDuplicateKey) {
		return r.upsertWithMySQL(ctx, entity, fields)
	}
	// Fallback: separate insert/update logic
	return r.upsertFallback(ctx, entity)
}

// UpdateWhere writes exactly the listed columns of entity to every row
// matching conditions and reports the affected count. Columns a model hook
// mutates outside the list are not persisted.
func (r *baseRepositoryImpl[T]) UpdateWhere(ctx context.Context, entity *T, columns []string, conditions *types.Conditions) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("columns cannot be empty")
	}
	if conditions.IsZero() {
		return 0, fmt.Errorf("refusing to update without conditions")
	}
	clauses, err := compileConditions(r.Table(), conditions)
	if err != nil {
		return 0, err
	}
	query := r.conn.NewUpdate().Model(entity).Column(columns...)
	for _, clause := range clauses {
		query = query.Where(clause.schema, clause.args...)
	}
	result, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *baseRepositoryImpl[T]) DeleteWhere(ctx context.Context, conditions *types.Conditions) (int64, error) {
	if conditions.IsZero() {
		return 0, fmt.Errorf("refusing to delete without conditions")
	}
	clauses, err := compileConditions(r.Table(), conditions)
	if err != nil {
		return 0, err
	}
	var entity T
	query := r.conn.NewDelete().Model(&entity)
	for _, clause := range clauses {
		query = query.Where(clause.schema, clause.args...)
	}
	result, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// NewEntity materializes an entity from a map keyed by column names, so that
// Bun model hooks observe a real struct instead of a raw map. Values are
// assigned directly when types line up and scanned through the field
// otherwise. The returned column list is sorted for deterministic SQL.
func (r *baseRepositoryImpl[T]) NewEntity(values map[string]interface{}) (*T, []string, error) {
	table := r.Table()
	entity := new(T)
	strct := reflect.ValueOf(entity).Elem()
	columns := make([]string, 0, len(values))
	for column, value := range values {
		field, ok := table.FieldMap[column]
		if !ok {
			return nil, nil, fmt.Errorf("model %s has no column %s", table.TypeName, column)
		}
		if err := setField(field, strct, value); err != nil {
			return nil, nil, fmt.Errorf("column %s: %v", column, err)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return entity, columns, nil
}

func setField(field *schema.Field, strct reflect.Value, value interface{}) error {
	target := field.Value(strct)
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	source := reflect.ValueOf(value)
	switch {
	case source.Type().AssignableTo(target.Type()):
		target.Set(source)
	case source.Type().ConvertibleTo(target.Type()):
		target.Set(source.Convert(target.Type()))
	default:
		return field.ScanValue(strct, value)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) IDs(entity *T) ([]interface{}, error) {
	table := r.Table()
	if len(table.PKs) == 0 {
		return nil, fmt.Errorf("model %s has no primary key", table.TypeName)
	}
	strct := reflect.ValueOf(entity).Elem()
	ids := make([]interface{}, 0, len(table.PKs))
	for _, pk := range table.PKs {
		ids = append(ids, pk.Value(strct).Interface())
	}
	return ids, nil
}

func (r *baseRepositoryImpl[T]) PrimaryKeyFilter(ids ...interface{}) (*types.Conditions, error) {
	table := r.Table()
	if len(table.PKs) != len(ids) {
		return nil, fmt.Errorf("model %s has %d primary key columns, got %d values",
			table.TypeName, len(table.PKs), len(ids))
	}
	equals := make(map[string]interface{}, len(ids))
	for i, pk := range table.PKs {
		equals[pk.Name] = ids[i]
	}
	return types.Where(equals), nil
}

func (r *baseRepositoryImpl[T]) buildSelect(model interface{}, conditions *types.Conditions, options *types.FindOptions) (*bun.SelectQuery, error) {
	query := r.conn.NewSelect().Model(model)
	if options != nil {
		for _, relation := range options.Relations {
			query = query.Relation(relation)
		}
		if len(options.Columns) > 0 {
			query = query.Column(options.Columns...)
		}
		if len(options.Orders) > 0 {
			query = query.Order(options.Orders...)
		}
	}
	return applyConditions(query, r.Table(), conditions)
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, entity *T, fields []string) error {
	_, err := r.mysqlUpsertQuery(entity, fields).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) mysqlUpsertQuery(entity *T, fields []string) *bun.InsertQuery {
	var queryArgs []string
	// MySQL only reports LastInsertId for inserted rows; pinning the key keeps
	// it pointing at the existing row when the update path is taken.
	if pks := r.Table().PKs; len(pks) == 1 && pks[0].AutoIncrement {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = LAST_INSERT_ID(%s)", bun.Ident(pks[0].Name), bun.Ident(pks[0].Name)))
	}
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", bun.Ident(field), bun.Ident(field)))
	}
	return r.conn.NewInsert().
		Model(entity).
		On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", "))
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, entity *T, fields []string, conflictColumns []string) error {
	if len(conflictColumns) == 0 {
		conflictColumns = r.primaryKeyColumns()
	}
	keyNames := strings.Join(conflictColumns, ",")
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", bun.Ident(field), bun.Ident(field)))
	}
	_, err := r.conn.NewInsert().
		Model(entity).
		On("CONFLICT (" + keyNames + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, entity *T) error {
	_, err := r.conn.NewInsert().Model(entity).Exec(ctx)
	if err != nil {
		_, updateErr := r.conn.NewUpdate().Model(entity).WherePK().Exec(ctx)
		if updateErr != nil {
			return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) primaryKeyColumns() []string {
	table := r.Table()
	if len(table.PKs) == 0 {
		return []string{"id"}
	}
	columns := make([]string, 0, len(table.PKs))
	for _, pk := range table.PKs {
		columns = append(columns, pk.Name)
	}
	return columns
}
