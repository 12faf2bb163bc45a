package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/jhoelito123/PyStart/core/catalog"
	"github.com/jhoelito123/PyStart/core/course"
)

func TestDB_InTx(t *testing.T) {
	ctx := context.Background()
	db := Open()
	repo := NewCatalogRepository(db)
	boom := errors.New("boom")

	// failed transaction: nothing stays
	err := db.InTx(ctx, func(ctx context.Context) error {
		_, err := repo.CreateDepartment(ctx, catalog.Department{Name: "La Paz", ShortName: "LP"})
		require.NoError(t, err)
		return boom
	})
	assert.Equal(t, boom, err)
	depts, err := repo.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Empty(t, depts)

	// a failed nested transaction only undoes its own writes
	err = db.InTx(ctx, func(ctx context.Context) error {
		if _, err := repo.CreateDepartment(ctx, catalog.Department{Name: "Cochabamba", ShortName: "CB"}); err != nil {
			return err
		}
		nestedErr := db.InTx(ctx, func(ctx context.Context) error {
			_, err := repo.CreateDepartment(ctx, catalog.Department{Name: "Oruro", ShortName: "OR"})
			require.NoError(t, err)
			return boom
		})
		assert.Equal(t, boom, nestedErr)
		return nil
	})
	require.NoError(t, err)
	depts, err = repo.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, depts, 1)
	assert.Equal(t, "Cochabamba", depts[0].Name)
}

func TestDB_InTx_panic(t *testing.T) {
	ctx := context.Background()
	db := Open()
	repo := NewCatalogRepository(db)

	assert.Panics(t, func() {
		_ = db.InTx(ctx, func(ctx context.Context) error {
			_, _ = repo.CreateLookup(ctx, catalog.KindModule, "Basics")
			panic("boom")
		})
	})
	lookups, err := repo.ListLookups(ctx, catalog.KindModule)
	require.NoError(t, err)
	assert.Empty(t, lookups)

	// the lock was released
	_, err = repo.CreateLookup(ctx, catalog.KindModule, "Basics")
	assert.NoError(t, err)
}

func TestDB_readUncommitted(t *testing.T) {
	ctx := context.Background()
	db := Open()
	repo := NewCatalogRepository(db)

	err := db.InTx(ctx, func(txCtx context.Context) error {
		_, err := repo.CreateDepartment(txCtx, catalog.Department{Name: "Potosí", ShortName: "PT"})
		require.NoError(t, err)

		// a read outside the transaction does not wait for it
		depts, err := repo.ListDepartments(ctx)
		require.NoError(t, err)
		assert.Len(t, depts, 1)
		return errors.New("rollback")
	})
	require.Error(t, err)

	depts, err := repo.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Empty(t, depts)
}

func TestCourseRepository_DeleteResources(t *testing.T) {
	ctx := context.Background()
	db := Open()
	repo := NewCourseRepository(db)

	c, err := repo.CreateCourse(ctx, course.Course{Name: "Python 101", InstructorID: 1})
	require.NoError(t, err)
	video, err := repo.CreateResource(ctx, course.Resource{Name: "v1", ResourceTypeID: 1})
	require.NoError(t, err)
	notes, err := repo.CreateResource(ctx, course.Resource{Name: "notes", ResourceTypeID: 1})
	require.NoError(t, err)
	sec, err := repo.CreateSection(ctx, course.Section{
		Name: "Intro", CourseID: c.ID, VideoID: null.IntFrom(video.ID), ContentID: null.IntFrom(notes.ID),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteResources(ctx))
	require.NoError(t, repo.DeleteResources(ctx, video.ID))

	got, err := repo.GetSection(ctx, sec.ID)
	require.NoError(t, err)
	assert.False(t, got.VideoID.Valid)
	assert.Equal(t, null.IntFrom(notes.ID), got.ContentID)

	resources, err := repo.ListSectionResources(ctx, sec.ID)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "notes", resources[0].Name)
}
