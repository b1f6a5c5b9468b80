package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

func TestParseSnapshot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		format  string
		want    []inventory.RemoteItem
		wantErr bool
	}{
		{
			name: "json list",
			data: `[{"id":"room-1","price":120,"availability":3},{"id":7,"price":9.5,"availability":true}]`,
			want: []inventory.RemoteItem{
				{ID: "room-1", Fields: inventory.Fields{"price": 120.0, "availability": 3.0}},
				{ID: "7", Fields: inventory.Fields{"price": 9.5, "availability": true}},
			},
		},
		{
			name: "json items object",
			data: `{"items":[{"id":"room-1","price":1,"availability":0,"board":"half"}]}`,
			want: []inventory.RemoteItem{
				{ID: "room-1", Fields: inventory.Fields{"price": 1.0, "availability": 0.0, "board": "half"}},
			},
		},
		{
			name:   "yaml numbers become float64",
			format: "yaml",
			data: `items:
  - id: room-1
    price: 120
    availability: 3
    tags: {view: 1}`,
			want: []inventory.RemoteItem{
				{ID: "room-1", Fields: inventory.Fields{
					"price": 120.0, "availability": 3.0, "tags": map[string]any{"view": 1.0},
				}},
			},
		},
		{
			name: "empty list",
			data: `[]`,
			want: []inventory.RemoteItem{},
		},
		{name: "not json", data: `{`, wantErr: true},
		{name: "scalar document", data: `42`, wantErr: true},
		{name: "object without items", data: `{"rooms":[]}`, wantErr: true},
		{name: "entry without id", data: `[{"price":1}]`, wantErr: true},
		{name: "entry not an object", data: `["room-1"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSnapshot([]byte(tt.data), tt.format)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedSnapshot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSnapshotUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := ParseSnapshot([]byte(`[]`), "csv")
	require.ErrorContains(t, err, "unsupported snapshot format")
}
