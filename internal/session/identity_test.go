package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityBindResolve(t *testing.T) {
	table := NewIdentityTable()
	conn := newFakeConn("conn-a")

	table.Bind(conn, "alice")
	assert.Equal(t, "alice", table.Resolve("conn-a"))
	assert.Equal(t, conn, table.Lookup("conn-a"))

	// Rebinding overwrites
	table.Bind(conn, "alice2")
	assert.Equal(t, "alice2", table.Resolve("conn-a"))
}

func TestIdentityResolveAbsentDefaults(t *testing.T) {
	table := NewIdentityTable()

	assert.Equal(t, DefaultName, table.Resolve("never-seen"))
	assert.Nil(t, table.Lookup("never-seen"))
}

func TestIdentityForget(t *testing.T) {
	table := NewIdentityTable()
	conn := newFakeConn("conn-a")

	table.Bind(conn, "alice")
	table.Forget("conn-a")

	assert.Equal(t, DefaultName, table.Resolve("conn-a"))
	assert.Nil(t, table.Lookup("conn-a"))

	// Forgetting twice is harmless
	table.Forget("conn-a")
}
