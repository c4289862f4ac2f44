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
	"fmt"
	"strings"

	"github.com/tomoncle/heron/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// whereClause is a single compiled WHERE fragment. Fragments from the same
// Conditions value are combined with AND by the query builder.
type whereClause struct {
	schema string
	args   []interface{}
}

// compileConditions turns a Conditions value into WHERE fragments against
// the given table. Column names are quoted with bun.Ident; unknown columns
// are passed through and rejected by the database.
func compileConditions(table *schema.Table, conditions *types.Conditions) ([]whereClause, error) {
	if conditions == nil || conditions.IsZero() {
		return nil, nil
	}
	switch {
	case conditions.ID != nil:
		if len(table.PKs) != 1 {
			return nil, fmt.Errorf("table %s has %d primary key columns, cannot filter by single id",
				table.Name, len(table.PKs))
		}
		return []whereClause{{
			schema: "? = ?",
			args:   []interface{}{bun.Ident(table.PKs[0].Name), conditions.ID},
		}}, nil
	case len(conditions.Equals) > 0:
		clauses := make([]whereClause, 0, len(conditions.Equals))
		for _, column := range types.SortedKeys(conditions.Equals) {
			clauses = append(clauses, whereClause{
				schema: "? = ?",
				args:   []interface{}{bun.Ident(column), conditions.Equals[column]},
			})
		}
		return clauses, nil
	case len(conditions.Or) > 0:
		return compileOrConditions(conditions.Or)
	case conditions.Raw != nil:
		return []whereClause{{schema: conditions.Raw.Schema, args: conditions.Raw.Args}}, nil
	}
	return nil, nil
}

// compileOrConditions builds a single "(a = ? AND b = ?) OR (...)" fragment
// from a list of equality sets.
func compileOrConditions(sets []map[string]interface{}) ([]whereClause, error) {
	var groups []string
	var args []interface{}
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		parts := make([]string, 0, len(set))
		for _, column := range types.SortedKeys(set) {
			parts = append(parts, "? = ?")
			args = append(args, bun.Ident(column), set[column])
		}
		groups = append(groups, "("+strings.Join(parts, " AND ")+")")
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return []whereClause{{schema: strings.Join(groups, " OR "), args: args}}, nil
}

func applyConditions(query *bun.SelectQuery, table *schema.Table, conditions *types.Conditions) (*bun.SelectQuery, error) {
	clauses, err := compileConditions(table, conditions)
	if err != nil {
		return nil, err
	}
	for _, clause := range clauses {
		query = query.Where(clause.schema, clause.args...)
	}
	return query, nil
}
