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

package types

import (
	"fmt"
	"sort"
	"strings"
)

// Conditions is a structured predicate selecting zero or more records.
// Exactly one of the variants is expected to be set:
//   - ID: shortcut for "primary key equals value"
//   - Equals: equality conditions joined with AND
//   - Or: alternative equality sets, each set joined with AND, sets with OR
//   - Raw: an opaque WHERE clause with positional arguments
type Conditions struct {
	ID     interface{}
	Equals map[string]interface{}
	Or     []map[string]interface{}
	Raw    *QueryFilter
}

// ByID builds conditions selecting a record by its primary key value.
func ByID(id interface{}) *Conditions {
	return &Conditions{ID: id}
}

// Where builds equality conditions joined with AND.
func Where(equals map[string]interface{}) *Conditions {
	return &Conditions{Equals: equals}
}

// AnyOf builds conditions matching any of the given equality sets.
func AnyOf(sets ...map[string]interface{}) *Conditions {
	return &Conditions{Or: sets}
}

// RawQuery builds conditions from an opaque WHERE clause schema and args.
func RawQuery(schema string, args ...interface{}) *Conditions {
	return &Conditions{Raw: NewQueryFilter(schema, args...)}
}

// IsZero reports whether no condition variant is set. Zero conditions select
// every record; single-record operations reject them during validation.
func (c *Conditions) IsZero() bool {
	if c == nil {
		return true
	}
	return c.ID == nil && len(c.Equals) == 0 && len(c.Or) == 0 && c.Raw == nil
}

// SortedKeys returns the keys of an equality set in deterministic order.
func SortedKeys(set map[string]interface{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the conditions for error messages and logs.
func (c *Conditions) String() string {
	switch {
	case c == nil:
		return "<nil>"
	case c.ID != nil:
		return fmt.Sprintf("id=%v", c.ID)
	case len(c.Equals) > 0:
		return renderEqualitySet(c.Equals)
	case len(c.Or) > 0:
		parts := make([]string, 0, len(c.Or))
		for _, set := range c.Or {
			parts = append(parts, "("+renderEqualitySet(set)+")")
		}
		return strings.Join(parts, " OR ")
	case c.Raw != nil:
		return fmt.Sprintf("%s %v", c.Raw.Schema, c.Raw.Args)
	default:
		return "<empty>"
	}
}

func renderEqualitySet(set map[string]interface{}) string {
	parts := make([]string, 0, len(set))
	for _, k := range SortedKeys(set) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, set[k]))
	}
	return strings.Join(parts, " AND ")
}
