package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	assetdomain "github.com/vistrive/assetnext/internal/asset/domain"
)

func TestMapDeviceNamePriority(t *testing.T) {
	tests := []struct {
		name string
		rec  DeviceRecord
		want string
	}{
		{
			name: "hostname wins",
			rec:  DeviceRecord{ID: "1", Hostname: "web-01", Name: "something else", IP: "10.0.0.1"},
			want: "web-01",
		},
		{
			name: "falls back to reported name",
			rec:  DeviceRecord{ID: "1", Name: "Office Printer", IP: "10.0.0.1"},
			want: "Office Printer",
		},
		{
			name: "falls back to ip placeholder",
			rec:  DeviceRecord{ID: "1", IP: "10.0.0.9"},
			want: "device-10.0.0.9",
		},
		{
			name: "fixed fallback when nothing is known",
			rec:  DeviceRecord{ID: "1"},
			want: "Unnamed Device",
		},
		{
			name: "whitespace hostname is not a name",
			rec:  DeviceRecord{ID: "1", Hostname: "   ", Name: "db-02"},
			want: "db-02",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			draft, err := MapDevice(tc.rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, draft.Name)
		})
	}
}

func TestMapDeviceNormalizesBlankAttributes(t *testing.T) {
	draft, err := MapDevice(DeviceRecord{
		ID:           "42",
		Hostname:     "web-01",
		Manufacturer: "  ",
		Model:        "",
		Serial:       "  SN-1  ",
	})
	require.NoError(t, err)

	assert.Nil(t, draft.Manufacturer)
	assert.Nil(t, draft.Model)
	require.NotNil(t, draft.SerialNumber)
	assert.Equal(t, "SN-1", *draft.SerialNumber)
}

func TestMapDevicePreservesMetadata(t *testing.T) {
	draft, err := MapDevice(DeviceRecord{
		ID:        "42",
		Hostname:  "web-01",
		IP:        "10.0.0.5",
		OSName:    "Ubuntu",
		OSVersion: "24.04",
		FirstSeen: "2026-01-01 10:00:00",
		LastSeen:  "2026-08-01 10:00:00",
		OrgID:     "7",
	})
	require.NoError(t, err)

	assert.Equal(t, "42", draft.Metadata["external_id"])
	assert.Equal(t, "web-01", draft.Metadata["hostname"])
	assert.Equal(t, "10.0.0.5", draft.Metadata["ip"])
	assert.Equal(t, "Ubuntu", draft.Metadata["os_name"])
	assert.Equal(t, "24.04", draft.Metadata["os_version"])
	assert.Equal(t, "7", draft.Metadata["org_id"])
	assert.Contains(t, draft.Notes, "device 42")
	assert.Equal(t, assetdomain.CategoryHardware, draft.Category)
}

func TestMapDeviceDefaultsType(t *testing.T) {
	draft, err := MapDevice(DeviceRecord{ID: "1", Hostname: "web-01"})
	require.NoError(t, err)
	assert.Equal(t, "computer", draft.AssetType)

	draft, err = MapDevice(DeviceRecord{ID: "1", Hostname: "sw-01", Type: "Switch"})
	require.NoError(t, err)
	assert.Equal(t, "switch", draft.AssetType)
}

func TestMapDeviceRejectsMissingID(t *testing.T) {
	_, err := MapDevice(DeviceRecord{Hostname: "web-01"})
	require.Error(t, err)

	var mapping *MappingError
	assert.ErrorAs(t, err, &mapping)
}
