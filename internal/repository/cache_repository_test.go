package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
)

type cachedGrades struct {
	SectionID string   `json:"sectionId"`
	Students  []string `json:"students"`
}

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, nil), srv
}

func TestCacheRepositorySetGet(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "grades:sec-1", cachedGrades{SectionID: "sec-1", Students: []string{"stu-1"}}, time.Minute))

	var got cachedGrades
	require.NoError(t, repo.Get(ctx, "grades:sec-1", &got))
	assert.Equal(t, []string{"stu-1"}, got.Students)

	srv.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "grades:sec-1", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDelete(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "grades:sec-1", cachedGrades{SectionID: "sec-1"}, time.Minute))
	require.NoError(t, repo.Set(ctx, "grades:sec-2", cachedGrades{SectionID: "sec-2"}, time.Minute))
	require.NoError(t, repo.Set(ctx, "other:key", cachedGrades{}, time.Minute))

	require.NoError(t, repo.Delete(ctx, "grades:sec-1"))
	assert.False(t, srv.Exists("grades:sec-1"))

	require.NoError(t, repo.DeleteByPattern(ctx, "grades:*"))
	assert.False(t, srv.Exists("grades:sec-2"))
	assert.True(t, srv.Exists("other:key"))
}

func TestCacheRepositoryCounter(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	n, err := repo.Counter(ctx, "section_grades:sec-1:gen")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.Incr(ctx, "section_grades:sec-1:gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.Counter(ctx, "section_grades:sec-1:gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, srv.Set("section_grades:sec-2:gen", "not-a-number"))
	_, err = repo.Counter(ctx, "section_grades:sec-2:gen")
	assert.Error(t, err)
}

func TestCacheRepositoryCorruptEntryIsMiss(t *testing.T) {
	repo, srv := newCacheRepo(t)
	require.NoError(t, srv.Set("grades:sec-1", "{not json"))

	var got cachedGrades
	err := repo.Get(context.Background(), "grades:sec-1", &got)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.False(t, srv.Exists("grades:sec-1"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var got cachedGrades
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", got, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "k"))
}
