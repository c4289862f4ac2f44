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
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/tomoncle/heron"
	"github.com/tomoncle/heron/database"
	"github.com/tomoncle/heron/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID        int64            `bun:"id,pk,autoincrement"`
	Title     string           `bun:"title,notnull,unique"`
	Status    string           `bun:"status,notnull"`
	Views     int64            `bun:"views"`
	Metadata  types.JsonObject `bun:"metadata,type:text"`
	CreatedAt time.Time        `bun:"created_at,nullzero"`
	UpdatedAt time.Time        `bun:"updated_at,nullzero"`
}

var _ bun.BeforeAppendModelHook = (*Article)(nil)

func (a *Article) BeforeAppendModel(_ context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		a.CreatedAt = time.Now()
	case *bun.UpdateQuery:
		a.UpdatedAt = time.Now()
	}
	return nil
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive for the test.
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newArticleService(t *testing.T) heron.Service[Article, Article] {
	t.Helper()
	db := newTestDB(t)
	_, err := db.NewCreateTable().Model((*Article)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return heron.NewWithDB[Article, Article](db, db, nil)
}

func seedArticle(t *testing.T, svc heron.Service[Article, Article], title, status string, views int64) *Article {
	t.Helper()
	article, err := svc.Create(context.Background(), map[string]interface{}{
		"title":  title,
		"status": status,
		"views":  views,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, article)
	return article
}

func TestCreateRefetchesInsertedEntity(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, map[string]interface{}{
		"title":    "hello world",
		"status":   "draft",
		"views":    3,
		"metadata": types.JsonObject{"lang": "go"},
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, article)

	assert.Greater(t, article.ID, int64(0))
	assert.Equal(t, "hello world", article.Title)
	assert.Equal(t, int64(3), article.Views)
	assert.Equal(t, "go", article.Metadata["lang"])
	assert.False(t, article.CreatedAt.IsZero(), "insert hook should stamp created_at")
}

func TestCreateNoResultSkipsRefetch(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()

	err := svc.CreateNoResult(ctx, map[string]interface{}{"title": "quiet", "status": "draft"})
	require.NoError(t, err)

	article, err := svc.Get(ctx, types.Where(map[string]interface{}{"title": "quiet"}), nil)
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, "draft", article.Status)
}

func TestCreateRefetchMergesFindOptions(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, map[string]interface{}{
		"title":  "partial",
		"status": "draft",
		"views":  9,
	}, &types.FindOptions{Columns: []string{"id", "title"}})
	require.NoError(t, err)
	require.NotNil(t, article)

	assert.Greater(t, article.ID, int64(0))
	assert.Equal(t, "partial", article.Title)
	assert.Zero(t, article.Views, "columns outside the selection stay unset")
	assert.Empty(t, article.Status)
}

func TestCreateTranslatesConstraintViolation(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	seedArticle(t, svc, "unique title", "draft", 0)

	_, err := svc.Create(ctx, map[string]interface{}{"title": "unique title", "status": "draft"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, heron.ErrCreateEntity))
	assert.True(t, heron.IsWriteError(err))

	var createErr *heron.CreateEntityError
	require.True(t, errors.As(err, &createErr))
	assert.True(t, database.IsConstraintViolation(createErr.Cause))
}

func TestCreateRejectsUnknownColumn(t *testing.T) {
	svc := newArticleService(t)

	_, err := svc.Create(context.Background(), map[string]interface{}{"title": "x", "status": "draft", "bogus": 1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestGetReturnsNilOnMiss(t *testing.T) {
	svc := newArticleService(t)

	article, err := svc.Get(context.Background(), types.ByID(404), nil)
	require.NoError(t, err)
	assert.Nil(t, article)
}

func TestGetOrFailReportsConditions(t *testing.T) {
	svc := newArticleService(t)

	_, err := svc.GetOrFail(context.Background(), types.Where(map[string]interface{}{"title": "missing"}), nil)
	require.Error(t, err)
	assert.True(t, heron.IsNoResultsFound(err))

	var notFound *heron.NoResultsFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Contains(t, notFound.Conditions.String(), "title=missing")
}

func TestGetHonorsFailOnEmptyOption(t *testing.T) {
	svc := newArticleService(t)

	_, err := svc.Get(context.Background(), types.ByID(404), &types.FindOptions{FailOnEmpty: true})
	assert.True(t, heron.IsNoResultsFound(err))
}

func TestUpdateSingleMatch(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	created := seedArticle(t, svc, "one", "active", 1)
	seedArticle(t, svc, "two", "archived", 2)

	updated, err := svc.Update(ctx,
		types.Where(map[string]interface{}{"id": created.ID, "status": "active"}),
		map[string]interface{}{"views": 10},
		nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, int64(10), updated.Views)
	assert.Equal(t, "one", updated.Title)
}

func TestUpdateAmbiguousConditionsWriteNothing(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	seedArticle(t, svc, "first", "active", 1)
	seedArticle(t, svc, "second", "active", 2)

	_, err := svc.Update(ctx,
		types.Where(map[string]interface{}{"status": "active"}),
		map[string]interface{}{"views": 99},
		nil)
	require.Error(t, err)
	assert.True(t, heron.IsConditionsTooBroad(err))

	articles, err := svc.List(ctx, nil, &types.FindOptions{Orders: []string{"id ASC"}})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, int64(1), articles[0].Views)
	assert.Equal(t, int64(2), articles[1].Views)
}

func TestUpdateWritesOnlyProvidedColumns(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	article := seedArticle(t, svc, "scoped", "draft", 4)

	updated, err := svc.Update(ctx, types.ByID(article.ID), map[string]interface{}{"status": "published"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "published", updated.Status)
	assert.Equal(t, int64(4), updated.Views)
	// The update hook stamps updated_at on the model, but only the columns
	// present in values reach the row.
	assert.True(t, updated.UpdatedAt.IsZero())
}

func TestUpdateNoMatchFails(t *testing.T) {
	svc := newArticleService(t)

	_, err := svc.Update(context.Background(),
		types.Where(map[string]interface{}{"status": "missing"}),
		map[string]interface{}{"views": 1},
		nil)
	assert.True(t, heron.IsNoResultsFound(err))
}

func TestUpdateEmptyConditionsRejected(t *testing.T) {
	svc := newArticleService(t)
	seedArticle(t, svc, "solo", "active", 0)

	_, err := svc.Update(context.Background(), nil, map[string]interface{}{"views": 1}, nil)
	assert.True(t, heron.IsConditionsTooBroad(err))
}

func TestUpdatePrimaryKeyRefetchesNewRow(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	created := seedArticle(t, svc, "movable", "active", 0)

	updated, err := svc.Update(ctx, types.ByID(created.ID), map[string]interface{}{"id": 500}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), updated.ID)
	assert.Equal(t, "movable", updated.Title)

	old, err := svc.Get(ctx, types.ByID(created.ID), nil)
	require.NoError(t, err)
	assert.Nil(t, old)
}

func TestDeleteSingleMatch(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	created := seedArticle(t, svc, "doomed", "active", 0)

	removed, err := svc.Delete(ctx, types.ByID(created.ID))
	require.NoError(t, err)
	assert.True(t, removed)

	article, err := svc.Get(ctx, types.ByID(created.ID), nil)
	require.NoError(t, err)
	assert.Nil(t, article)
}

func TestDeleteMissFails(t *testing.T) {
	svc := newArticleService(t)

	_, err := svc.Delete(context.Background(), types.ByID(404))
	assert.True(t, heron.IsNoResultsFound(err))
}

func TestDeleteAmbiguousFails(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	seedArticle(t, svc, "a", "active", 0)
	seedArticle(t, svc, "b", "active", 0)

	_, err := svc.Delete(ctx, types.Where(map[string]interface{}{"status": "active"}))
	assert.True(t, heron.IsConditionsTooBroad(err))

	_, count, err := svc.ListAndCount(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteManyReturnsRawCount(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	seedArticle(t, svc, "a", "stale", 0)
	seedArticle(t, svc, "b", "stale", 0)
	seedArticle(t, svc, "c", "fresh", 0)

	count, err := svc.DeleteMany(ctx, types.Where(map[string]interface{}{"status": "stale"}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = svc.DeleteMany(ctx, types.Where(map[string]interface{}{"status": "stale"}))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUpsertInsertsThenUpdates(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, map[string]interface{}{
		"id":     int64(7),
		"title":  "upsertable",
		"status": "draft",
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.ID)
	assert.Equal(t, "draft", first.Status)

	second, err := svc.Upsert(ctx, map[string]interface{}{
		"id":     int64(7),
		"title":  "upsertable",
		"status": "published",
	}, &heron.UpsertOptions{Fields: []string{"status"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), second.ID)
	assert.Equal(t, "published", second.Status)

	_, total, err := svc.ListAndCount(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListAndCount(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	seedArticle(t, svc, "a", "active", 0)
	seedArticle(t, svc, "b", "active", 0)
	seedArticle(t, svc, "c", "archived", 0)

	articles, total, err := svc.ListAndCount(ctx, types.Where(map[string]interface{}{"status": "active"}), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, articles, 2)
}

func TestPage(t *testing.T) {
	svc := newArticleService(t)
	ctx := context.Background()
	titles := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, title := range titles {
		seedArticle(t, svc, title, "active", 0)
	}

	page, err := svc.Page(ctx, types.NewPageRequest(2, 2, nil, []string{"id ASC"}))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p3", page.Items[0].Title)
	assert.Equal(t, "p4", page.Items[1].Title)
}
