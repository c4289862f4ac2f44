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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionsIsZero(t *testing.T) {
	var nilConds *Conditions
	assert.True(t, nilConds.IsZero())
	assert.True(t, (&Conditions{}).IsZero())
	assert.True(t, Where(map[string]interface{}{}).IsZero())
	assert.False(t, ByID(1).IsZero())
	assert.False(t, Where(map[string]interface{}{"a": 1}).IsZero())
	assert.False(t, AnyOf(map[string]interface{}{"a": 1}).IsZero())
	assert.False(t, RawQuery("a = ?", 1).IsZero())
}

func TestConditionsString(t *testing.T) {
	assert.Equal(t, "id=7", ByID(7).String())
	assert.Equal(t, "a=1 AND b=2", Where(map[string]interface{}{"b": 2, "a": 1}).String())
	assert.Equal(t, "(a=1) OR (b=2)", AnyOf(
		map[string]interface{}{"a": 1},
		map[string]interface{}{"b": 2},
	).String())
	assert.Equal(t, "views > ? [10]", RawQuery("views > ?", 10).String())

	var nilConds *Conditions
	assert.Equal(t, "<nil>", nilConds.String())
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]interface{}{"c": 1, "a": 2, "b": 3})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestPageRequestDefaults(t *testing.T) {
	page := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, page.GetPage())
	assert.Equal(t, 10, page.GetPageSize())
	assert.Equal(t, 0, page.GetOffset())

	page = NewDefaultPageRequest(3, 20)
	assert.Equal(t, 40, page.GetOffset())
}
