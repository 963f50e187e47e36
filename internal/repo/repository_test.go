package repo_test

import (
	"testing"

	"github.com/nrmkhd/namewatch/internal/repo"
	"github.com/nrmkhd/namewatch/internal/repo/memory"
	pg "github.com/nrmkhd/namewatch/internal/repo/postgres"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.WatchStore = memory.New()
	var _ repo.CheckLogStore = memory.New()

	// Postgres store types compile against the interfaces, too.
	var _ repo.WatchStore = (*pg.Store)(nil)
	var _ repo.CheckLogStore = (*pg.Store)(nil)
}
