package main

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/scam-honeypot/migrations"
)

type fakeMigrator struct {
	calls   []string
	version int
	err     error
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.err }
func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.version = v
	return f.err
}

func TestRunDefaultsToUp(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run(m, nil))
	assert.Equal(t, []string{"up"}, m.calls)
}

func TestRunIgnoresNoChange(t *testing.T) {
	m := &fakeMigrator{err: migrate.ErrNoChange}
	assert.NoError(t, run(m, []string{"up"}))
	assert.NoError(t, run(m, []string{"down"}))
}

func TestRunPropagatesErrors(t *testing.T) {
	m := &fakeMigrator{err: errors.New("dirty database")}
	assert.ErrorContains(t, run(m, []string{"up"}), "dirty database")
}

func TestRunForce(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run(m, []string{"force", "1"}))
	assert.Equal(t, 1, m.version)

	assert.Error(t, run(m, []string{"force"}))
	assert.Error(t, run(m, []string{"force", "x"}))
	assert.Error(t, run(m, []string{"sideways"}))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	files, err := fs.Glob(appmigrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups, downs := 0, 0
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".up.sql"):
			ups++
		case strings.HasSuffix(f, ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
}
