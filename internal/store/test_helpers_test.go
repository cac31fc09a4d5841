package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/labrun/internal/protocol"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDocument returns a small v4 document with n delay commands.
func createTestDocument(name string, n int) *protocol.Document {
	doc := &protocol.Document{
		SchemaVersion:      4,
		Metadata:           protocol.Object{"protocolName": protocol.String(name)},
		Labware:            map[string]protocol.LabwareEntry{},
		LabwareDefinitions: map[string]protocol.Object{},
	}
	for i := 0; i < n; i++ {
		doc.Commands = append(doc.Commands, protocol.Command{
			Type:   "delay",
			Params: protocol.Object{"wait": protocol.Number(i)},
		})
	}
	return doc
}

// at returns a fixed instant offset by sec seconds.
func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC)
}
