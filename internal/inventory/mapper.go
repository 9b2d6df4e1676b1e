package inventory

import (
	"fmt"
	"strings"

	assetdomain "github.com/vistrive/assetnext/internal/asset/domain"
	"gorm.io/datatypes"
)

const fallbackDeviceName = "Unnamed Device"

// MapDevice converts one upstream device into an asset draft. Drafts are
// always nameable: hostname wins, then the reported name, then an
// ip-derived placeholder, then a fixed fallback. Blank optional attributes
// normalize to nil so identity resolution never matches on empty strings.
func MapDevice(rec DeviceRecord) (assetdomain.Draft, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return assetdomain.Draft{}, &MappingError{Reason: "device record has no id"}
	}

	draft := assetdomain.Draft{
		Name:         deviceName(rec),
		Category:     assetdomain.CategoryHardware,
		AssetType:    deviceType(rec),
		Manufacturer: normalize(rec.Manufacturer),
		Model:        normalize(rec.Model),
		SerialNumber: normalize(rec.Serial),
		Metadata:     deviceMetadata(rec),
		Notes:        fmt.Sprintf("Imported from network inventory (device %s)", rec.ID),
	}
	return draft, nil
}

func deviceName(rec DeviceRecord) string {
	if name := strings.TrimSpace(rec.Hostname); name != "" {
		return name
	}
	if name := strings.TrimSpace(rec.Name); name != "" {
		return name
	}
	if ip := strings.TrimSpace(rec.IP); ip != "" {
		return "device-" + ip
	}
	return fallbackDeviceName
}

func deviceType(rec DeviceRecord) string {
	if t := strings.TrimSpace(rec.Type); t != "" {
		return strings.ToLower(t)
	}
	return "computer"
}

// normalize maps blank or whitespace-only attributes to nil.
func normalize(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// deviceMetadata preserves the upstream attributes that have no column of
// their own, keyed stably so downstream consumers can rely on them.
func deviceMetadata(rec DeviceRecord) datatypes.JSONMap {
	meta := datatypes.JSONMap{
		"external_id": rec.ID,
	}
	if v := strings.TrimSpace(rec.Hostname); v != "" {
		meta["hostname"] = v
	}
	if v := strings.TrimSpace(rec.IP); v != "" {
		meta["ip"] = v
	}
	if v := strings.TrimSpace(rec.OSName); v != "" {
		meta["os_name"] = v
	}
	if v := strings.TrimSpace(rec.OSVersion); v != "" {
		meta["os_version"] = v
	}
	if v := strings.TrimSpace(rec.FirstSeen); v != "" {
		meta["first_seen"] = v
	}
	if v := strings.TrimSpace(rec.LastSeen); v != "" {
		meta["last_seen"] = v
	}
	if v := strings.TrimSpace(rec.OrgID); v != "" {
		meta["org_id"] = v
	}
	return meta
}
