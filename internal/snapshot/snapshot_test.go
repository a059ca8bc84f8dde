package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-service/internal/domain"
)

func TestRoundTripCurrentVersion(t *testing.T) {
	tables := domain.Tables{
		"4": {
			Items: []domain.OrderItem{{
				ID: "beer", Name: "Beer", UnitPrice: 2.0, InstanceKey: 1700000000001,
				State: domain.StateQueuedForKitchen, Destination: domain.DestKitchen,
			}},
			CallRequested:  true,
			CustomProducts: []domain.CustomProduct{{ID: "c1", Name: "Cake", Price: 5}},
		},
	}

	b, err := Encode(tables)
	require.NoError(t, err)

	var p Persisted
	require.NoError(t, json.Unmarshal(b, &p))
	assert.Equal(t, CurrentVersion, p.Version)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, tables, got)
}

// Version 1 snapshots predate customProducts and per-item destinations; a
// reload must normalize them instead of dropping in-flight orders.
func TestMigrateVersion1(t *testing.T) {
	raw := []byte(`{
		"version": 1,
		"tables": {
			"4": {
				"items": [
					{"id": "beer", "name": "Beer", "unitPrice": 2.0, "instanceKey": 1},
					{"id": "pizza", "name": "Pizza", "unitPrice": 9.5, "instanceKey": 2, "state": "preparing", "destination": "kitchen"}
				],
				"callRequested": false,
				"billRequested": true
			}
		}
	}`)

	tables, err := Decode(raw)
	require.NoError(t, err)

	tab := tables["4"]
	require.Len(t, tab.Items, 2)
	assert.Equal(t, domain.StatePending, tab.Items[0].State)
	assert.Equal(t, domain.DestKitchen, tab.Items[0].Destination)
	// already-populated fields pass through untouched
	assert.Equal(t, domain.StatePreparing, tab.Items[1].State)
	assert.NotNil(t, tab.CustomProducts)
	assert.Empty(t, tab.CustomProducts)
	assert.True(t, tab.BillRequested)
}

func TestDecodeEmptyTables(t *testing.T) {
	tables, err := Decode([]byte(`{"version": 2}`))
	require.NoError(t, err)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)
}

func TestDecodeCorruptData(t *testing.T) {
	_, err := Decode([]byte(`{"version": `))
	assert.Error(t, err)
}
