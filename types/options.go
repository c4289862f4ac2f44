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

// FindOptions tunes read queries. The zero value (or nil pointer) selects
// all columns, loads no relations, and reads from the replica when one is
// configured.
type FindOptions struct {
	// Relations lists relation names to eager-load with the entity.
	Relations []string
	// Columns restricts the selected columns.
	Columns []string
	// Orders lists ORDER BY expressions, e.g. "id ASC".
	Orders []string
	// UseWrite forces the query onto the primary connection.
	UseWrite bool
	// FailOnEmpty makes single-record reads fail instead of returning nil.
	FailOnEmpty bool
}

// Merge overlays o with the non-zero settings of other and returns a new
// options value. Neither receiver nor argument is mutated.
func (o *FindOptions) Merge(other *FindOptions) *FindOptions {
	merged := &FindOptions{}
	if o != nil {
		*merged = *o
	}
	if other != nil {
		if len(other.Relations) > 0 {
			merged.Relations = other.Relations
		}
		if len(other.Columns) > 0 {
			merged.Columns = other.Columns
		}
		if len(other.Orders) > 0 {
			merged.Orders = other.Orders
		}
		merged.UseWrite = merged.UseWrite || other.UseWrite
		merged.FailOnEmpty = merged.FailOnEmpty || other.FailOnEmpty
	}
	return merged
}
