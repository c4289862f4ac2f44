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

// Package mapping converts read-shaped field values into their write-shaped
// counterparts using a declarative per-field rule table built once at service
// construction time.
package mapping

import (
	"github.com/tomoncle/heron/types"
)

// TransformFunc places a read-side value into the write-shaped object being
// built. A transform may fan one field out into several write fields or fold
// several into one; it alone decides which keys it sets.
type TransformFunc func(dst map[string]interface{}, value interface{})

type ruleKind int

const (
	ruleCopy ruleKind = iota
	ruleRename
	ruleCustom
)

// Rule describes how a single read field translates to the write shape.
type Rule struct {
	kind      ruleKind
	target    string
	transform TransformFunc
}

// Copy keeps the field under its original name.
func Copy() Rule {
	return Rule{kind: ruleCopy}
}

// Rename moves the field value under the given write-side column name.
func Rename(target string) Rule {
	return Rule{kind: ruleRename, target: target}
}

// Custom delegates the field entirely to the given transform.
func Custom(fn TransformFunc) Rule {
	return Rule{kind: ruleCustom, transform: fn}
}

// Mapping is the read-to-write field mapping table. A nil *Mapping is valid
// and acts as the identity transform, which covers services whose read and
// write schemas are the same (or schemaless) shape.
type Mapping struct {
	rules map[string]Rule
}

// New builds a mapping table from per-field rules. Fields without a rule are
// copied under their original names.
func New(rules map[string]Rule) *Mapping {
	copied := make(map[string]Rule, len(rules))
	for field, rule := range rules {
		copied[field] = rule
	}
	return &Mapping{rules: copied}
}

// Apply produces the write-shaped values for the given read-shaped values.
// The input map is never mutated. Fields unknown to the table copy through
// unchanged; a field with a Custom rule is handed to its transform and is
// not also copied verbatim.
func (m *Mapping) Apply(values map[string]interface{}) map[string]interface{} {
	if m == nil {
		return values
	}
	if values == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(values))
	for field, value := range values {
		rule, ok := m.rules[field]
		if !ok {
			dst[field] = value
			continue
		}
		switch rule.kind {
		case ruleRename:
			dst[rule.target] = value
		case ruleCustom:
			rule.transform(dst, value)
		default:
			dst[field] = value
		}
	}
	return dst
}

// ApplyConditions translates read-side condition field names into write-side
// column names. Primary-key and raw conditions pass through untouched; the
// write repository interprets them against its own schema.
func (m *Mapping) ApplyConditions(conds *types.Conditions) *types.Conditions {
	if m == nil || conds == nil {
		return conds
	}
	switch {
	case len(conds.Equals) > 0:
		return &types.Conditions{Equals: m.Apply(conds.Equals)}
	case len(conds.Or) > 0:
		sets := make([]map[string]interface{}, 0, len(conds.Or))
		for _, set := range conds.Or {
			sets = append(sets, m.Apply(set))
		}
		return &types.Conditions{Or: sets}
	default:
		return conds
	}
}
