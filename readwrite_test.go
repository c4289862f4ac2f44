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

package heron_test

import (
	"context"
	"testing"

	"github.com/tomoncle/heron"
	"github.com/tomoncle/heron/mapping"
	"github.com/tomoncle/heron/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// Account is the write-side row; AccountProfile is the read-side projection
// exposed through a view with renamed columns.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:ac"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
	Plan string `bun:"plan,notnull"`
}

type AccountProfile struct {
	bun.BaseModel `bun:"table:account_profiles,alias:ap"`

	ID          int64  `bun:"id,pk"`
	DisplayName string `bun:"display_name"`
	Plan        string `bun:"plan"`
}

func newAccountService(t *testing.T) heron.Service[AccountProfile, Account] {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()
	_, err := db.NewCreateTable().Model((*Account)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		"CREATE VIEW account_profiles AS SELECT id, name AS display_name, plan FROM accounts")
	require.NoError(t, err)

	m := mapping.New(map[string]mapping.Rule{
		"display_name": mapping.Rename("name"),
		"plan":         mapping.Copy(),
	})
	return heron.NewWithDB[AccountProfile, Account](db, db, m)
}

func TestSplitSchemaCreateMapsFields(t *testing.T) {
	svc := newAccountService(t)

	profile, err := svc.Create(context.Background(), map[string]interface{}{
		"display_name": "Ada",
		"plan":         "pro",
	}, nil)
	require.NoError(t, err)
	assert.Greater(t, profile.ID, int64(0))
	assert.Equal(t, "Ada", profile.DisplayName)
	assert.Equal(t, "pro", profile.Plan)
}

func TestSplitSchemaUpdateMapsConditionsAndValues(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, map[string]interface{}{"display_name": "Ada", "plan": "pro"}, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, map[string]interface{}{"display_name": "Grace", "plan": "free"}, nil)
	require.NoError(t, err)

	updated, err := svc.Update(ctx,
		types.Where(map[string]interface{}{"display_name": "Ada"}),
		map[string]interface{}{"plan": "enterprise"},
		nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.DisplayName)
	assert.Equal(t, "enterprise", updated.Plan)

	other, err := svc.GetOrFail(ctx, types.Where(map[string]interface{}{"display_name": "Grace"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "free", other.Plan)
}

func TestSplitSchemaDelete(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, map[string]interface{}{"display_name": "Ada", "plan": "pro"}, nil)
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, types.Where(map[string]interface{}{"display_name": "Ada"}))
	require.NoError(t, err)
	assert.True(t, removed)

	profiles, err := svc.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}
