// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package store

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The version-listing helpers silently skip files that don't match the
// naming convention, so the convention itself is enforced here.
func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries, "at least one migration must be embedded")

	pattern := regexp.MustCompile(`^\d{6}_[a-z0-9_]+\.(up|down)\.sql$`)
	ups := make(map[string]bool)
	downs := make(map[string]bool)

	for _, entry := range entries {
		name := entry.Name()
		assert.Regexp(t, pattern, name, "migration files must be named NNNNNN_name.(up|down).sql")

		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.Equal(t, ups, downs, "every up migration needs a matching down migration")
}

func TestAllMigrationVersions(t *testing.T) {
	versions, err := allMigrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, uint(1), versions[0])
	assert.IsIncreasing(t, versions)
}
