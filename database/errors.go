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
	"strings"

	"github.com/go-sql-driver/mysql"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

// mysqlErrNumbers maps MySQL server error numbers to SQLError kinds.
var mysqlErrNumbers = map[uint16]SQLError{
	1054: NoColumnErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
}

// messageMatcher classifies driver errors that only surface as text, which
// covers lib/pq SQLSTATE strings and sqlite constraint messages.
type messageMatcher struct {
	kind  SQLError
	terms []string
}

var messageMatchers = []messageMatcher{
	{NoColumnErr, []string{"sqlstate 42703", "undefined column", "no such column"}},
	{NoTableErr, []string{"sqlstate 42p01", "undefined table", "no such table"}},
	{DuplicateKeyErr, []string{"duplicate key value", "unique constraint failed", "sqlstate 23505"}},
	{NotNullViolationErr, []string{"not-null constraint", "not null constraint failed", "sqlstate 23502"}},
	{ForeignKeyViolationErr, []string{"foreign key violation", "foreign key constraint failed", "sqlstate 23503"}},
	{CheckConstraintViolationErr, []string{"check constraint", "sqlstate 23514"}},
	{DataTruncatedErr, []string{"string data right truncation", "data truncated", "sqlstate 22001"}},
	{InvalidTypeCastErr, []string{"datatype mismatch", "sqlstate 42804"}},
}

// IsSqlError reports whether err is a recognized SQL query failure and
// classifies it. Errors that are not query failures (context cancellation,
// connection setup problems, application errors) report false.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrNumbers[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	s := strings.ToLower(err.Error())
	for _, m := range messageMatchers {
		for _, term := range m.terms {
			if strings.Contains(s, term) {
				return true, m.kind
			}
		}
	}
	if strings.Contains(s, "already exists") &&
		(strings.Contains(s, "table") || strings.Contains(s, "relation")) {
		return true, ExistTableErr
	}
	return false, UnknownErr
}

// IsQueryError reports whether err is a recognized query failure, without
// classifying it. Callers use it to decide whether an error may be wrapped
// into a domain error kind or must propagate unchanged.
func IsQueryError(err error) bool {
	is, _ := IsSqlError(err)
	return is
}

// IsConstraintViolation reports whether err is a recognized constraint
// failure (duplicate key, not-null, foreign key, or check constraint).
func IsConstraintViolation(err error) bool {
	is, kind := IsSqlError(err)
	if !is {
		return false
	}
	switch kind {
	case DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr:
		return true
	default:
		return false
	}
}
