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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   bool
		kind SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", sql.ErrNoRows, true, NoRowsErr},
		{"wrapped no rows", fmt.Errorf("query: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql no column", &mysql.MySQLError{Number: 1054, Message: "Unknown column"}, true, NoColumnErr},
		{"mysql unmapped", &mysql.MySQLError{Number: 9999, Message: "whatever"}, true, UnknownErr},
		{"pg sqlstate duplicate", errors.New(`pq: duplicate key value violates unique constraint "users_pkey" (SQLSTATE 23505)`), true, DuplicateKeyErr},
		{"sqlite unique", errors.New("UNIQUE constraint failed: articles.title"), true, DuplicateKeyErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: articles.title"), true, NotNullViolationErr},
		{"sqlite no table", errors.New("no such table: missing"), true, NoTableErr},
		{"sqlite no column", errors.New("no such column: bogus"), true, NoColumnErr},
		{"table exists", errors.New(`table "articles" already exists`), true, ExistTableErr},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), false, UnknownErr},
		{"application error", errors.New("boom"), false, UnknownErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, kind := IsSqlError(tt.err)
			assert.Equal(t, tt.is, is)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestIsQueryError(t *testing.T) {
	assert.False(t, IsQueryError(nil))
	assert.False(t, IsQueryError(errors.New("boom")))
	assert.True(t, IsQueryError(sql.ErrNoRows))
	assert.True(t, IsQueryError(errors.New("no such column: bogus")))
}

func TestIsConstraintViolation(t *testing.T) {
	assert.True(t, IsConstraintViolation(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsConstraintViolation(errors.New("UNIQUE constraint failed: a.b")))
	assert.True(t, IsConstraintViolation(errors.New("insert or update violates foreign key constraint (SQLSTATE 23503)")))
	assert.False(t, IsConstraintViolation(sql.ErrNoRows))
	assert.False(t, IsConstraintViolation(errors.New("boom")))
	assert.False(t, IsConstraintViolation(nil))
}
