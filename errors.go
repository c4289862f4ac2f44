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
	"errors"
	"fmt"

	"github.com/tomoncle/heron/database"
	"github.com/tomoncle/heron/types"
)

// Sentinels for errors.Is checks. The concrete error types below carry the
// offending conditions or the underlying cause.
var (
	ErrNoResultsFound     = errors.New("no results matched the given conditions")
	ErrConditionsTooBroad = errors.New("conditions matched more than one record")
	ErrCreateEntity       = errors.New("create entity failed")
	ErrUpdateEntity       = errors.New("update entity failed")
	ErrDeleteEntity       = errors.New("delete entity failed")
)

// NoResultsFoundError reports that a single-record operation matched nothing.
type NoResultsFoundError struct {
	Conditions *types.Conditions
}

func (e *NoResultsFoundError) Error() string {
	return fmt.Sprintf("no results matched conditions: %s", e.Conditions)
}

func (e *NoResultsFoundError) Is(target error) bool { return target == ErrNoResultsFound }

// ConditionsTooBroadError reports that conditions for a single-record
// mutation matched more than one record. No write is performed.
type ConditionsTooBroadError struct {
	Conditions *types.Conditions
}

func (e *ConditionsTooBroadError) Error() string {
	return fmt.Sprintf("conditions matched more than one record: %s", e.Conditions)
}

func (e *ConditionsTooBroadError) Is(target error) bool { return target == ErrConditionsTooBroad }

// CreateEntityError wraps a query failure raised while inserting an entity.
type CreateEntityError struct {
	Cause error
}

func (e *CreateEntityError) Error() string { return fmt.Sprintf("create entity failed: %v", e.Cause) }

func (e *CreateEntityError) Unwrap() error { return e.Cause }

func (e *CreateEntityError) Is(target error) bool { return target == ErrCreateEntity }

// UpdateEntityError wraps a query failure raised while updating an entity.
type UpdateEntityError struct {
	Cause error
}

func (e *UpdateEntityError) Error() string { return fmt.Sprintf("update entity failed: %v", e.Cause) }

func (e *UpdateEntityError) Unwrap() error { return e.Cause }

func (e *UpdateEntityError) Is(target error) bool { return target == ErrUpdateEntity }

// DeleteEntityError wraps a query failure raised while deleting entities.
type DeleteEntityError struct {
	Cause error
}

func (e *DeleteEntityError) Error() string { return fmt.Sprintf("delete entity failed: %v", e.Cause) }

func (e *DeleteEntityError) Unwrap() error { return e.Cause }

func (e *DeleteEntityError) Is(target error) bool { return target == ErrDeleteEntity }

// IsNoResultsFound reports whether err signals an empty single-record result.
func IsNoResultsFound(err error) bool { return errors.Is(err, ErrNoResultsFound) }

// IsConditionsTooBroad reports whether err signals an ambiguous match.
func IsConditionsTooBroad(err error) bool { return errors.Is(err, ErrConditionsTooBroad) }

// IsWriteError reports whether err is a wrapped create, update, or delete
// failure.
func IsWriteError(err error) bool {
	return errors.Is(err, ErrCreateEntity) ||
		errors.Is(err, ErrUpdateEntity) ||
		errors.Is(err, ErrDeleteEntity)
}

// translateQueryError wraps err with wrap when the database recognizes it as
// a query failure, and returns it verbatim otherwise. Unknown errors are not
// reinterpreted as write failures.
func translateQueryError(err error, wrap func(error) error) error {
	if err == nil {
		return nil
	}
	if database.IsQueryError(err) {
		return wrap(err)
	}
	return err
}

func wrapCreateError(cause error) error { return &CreateEntityError{Cause: cause} }

func wrapUpdateError(cause error) error { return &UpdateEntityError{Cause: cause} }

func wrapDeleteError(cause error) error { return &DeleteEntityError{Cause: cause} }
