package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locator/internal/candidate"
	"locator/internal/geo"
)

func TestFromCandidatesMapsTierToNullable(t *testing.T) {
	rows := FromCandidates([]candidate.Candidate{
		{ID: "a", Name: "Alpha", City: "Guildford", Position: geo.Position{Lat: 51.2, Lng: -0.5}, Tier: 2},
		{ID: "b", Name: "Beta", Position: geo.Position{Lat: 51.3, Lng: -0.6}},
	})
	require.Len(t, rows, 2)

	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "Guildford", rows[0].City)
	assert.Equal(t, 51.2, rows[0].Latitude)
	assert.Equal(t, -0.5, rows[0].Longitude)
	require.NotNil(t, rows[0].Tier)
	assert.Equal(t, 2, *rows[0].Tier)

	assert.Nil(t, rows[1].Tier)
}

func TestSchemaCreatesRetailersTable(t *testing.T) {
	require.NotEmpty(t, schema)
	assert.Contains(t, schema[0], "CREATE TABLE IF NOT EXISTS retailers")
	assert.Contains(t, upsertRetailer, "ON CONFLICT (id)")
}
