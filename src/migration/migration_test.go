package migration

import (
	"context"
	"testing"
	"time"

	"git.handmade.network/hmn/syllabus/src/migration/migrations"
	"git.handmade.network/hmn/syllabus/src/migration/types"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreSorted(t *testing.T) {
	versions := sortedVersions()
	require.NotEmpty(t, versions)
	for i := 1; i < len(versions); i++ {
		assert.True(t, versions[i-1].Before(versions[i]))
	}
	assert.True(t, LatestVersion().Equal(versions[len(versions)-1]))

	for _, version := range versions {
		assert.True(t, version.Equal(migrations.All[version].Version()))
	}
}

func TestVersionIndex(t *testing.T) {
	versions := sortedVersions()
	assert.Equal(t, 0, versionIndex(versions, versions[0]))
	assert.Equal(t, -1, versionIndex(versions, types.MigrationVersion{}))
}

type fakeMigration struct {
	version types.MigrationVersion
}

func (m fakeMigration) Version() types.MigrationVersion {
	return m.version
}

func (m fakeMigration) Name() string {
	return m.version.String()
}

func (m fakeMigration) Description() string {
	return ""
}

func (m fakeMigration) Up(ctx context.Context, tx pgx.Tx) error {
	return nil
}

func (m fakeMigration) Down(ctx context.Context, tx pgx.Tx) error {
	return nil
}

func TestPlanSteps(t *testing.T) {
	v1 := types.MigrationVersion(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	v2 := types.MigrationVersion(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	v3 := types.MigrationVersion(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	all := map[types.MigrationVersion]types.Migration{
		v1: fakeMigration{v1},
		v2: fakeMigration{v2},
		v3: fakeMigration{v3},
	}
	versions := []types.MigrationVersion{v1, v2, v3}

	t.Run("fresh database to latest", func(t *testing.T) {
		steps, err := planSteps(all, versions, types.MigrationVersion{}, types.MigrationVersion{})
		require.Nil(t, err)
		require.Len(t, steps, 3)
		for i, s := range steps {
			assert.False(t, s.Down)
			assert.True(t, s.ResultsIn.Equal(versions[i]))
		}
	})

	t.Run("roll back", func(t *testing.T) {
		steps, err := planSteps(all, versions, v3, v1)
		require.Nil(t, err)
		require.Len(t, steps, 2)
		assert.True(t, steps[0].Down)
		assert.True(t, steps[0].Migration.Version().Equal(v3))
		assert.True(t, steps[0].ResultsIn.Equal(v2))
		assert.True(t, steps[1].Migration.Version().Equal(v2))
		assert.True(t, steps[1].ResultsIn.Equal(v1))
	})

	t.Run("already there", func(t *testing.T) {
		steps, err := planSteps(all, versions, v3, v3)
		require.Nil(t, err)
		assert.Empty(t, steps)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := planSteps(all, versions, v1, types.MigrationVersion(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
		assert.ErrorIs(t, err, errUnknownVersion)
	})

	t.Run("unknown current", func(t *testing.T) {
		_, err := planSteps(all, versions, types.MigrationVersion(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)), v3)
		assert.ErrorIs(t, err, errUnknownVersion)
	})
}

func TestRenderMigration(t *testing.T) {
	now := time.Date(2026, 10, 2, 8, 15, 30, 0, time.UTC)
	result := renderMigration(migrationTemplate, "AddSyllabusNotes", `Add a "notes" column`, now)

	assert.Contains(t, result, "registerMigration(AddSyllabusNotes{})")
	assert.Contains(t, result, "time.Date(2026, 10, 2, 8, 15, 30, 0, time.UTC)")
	assert.Contains(t, result, `return "Add a \"notes\" column"`)
	assert.NotContains(t, result, "%NAME%")
}
