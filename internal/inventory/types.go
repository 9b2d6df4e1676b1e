package inventory

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Session is the opaque, short-lived credential for one reconciliation's
// worth of calls. It is never persisted or reused across ticks.
type Session struct {
	baseURL string
	cookie  string
}

// DeviceRecord is the strict, boundary-validated form of one upstream
// device. The raw payload never travels past this package.
type DeviceRecord struct {
	ID           string
	OrgID        string
	Name         string
	Hostname     string
	IP           string
	Type         string
	Manufacturer string
	Model        string
	Serial       string
	OSName       string
	OSVersion    string
	FirstSeen    string
	LastSeen     string
}

// flexID tolerates the upstream's habit of serializing ids as either a
// JSON number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

type deviceAttributes struct {
	// Some deployments nest the id inside attributes instead of (or in
	// addition to) the resource envelope.
	ID           flexID `json:"id"`
	OrgID        flexID `json:"org_id"`
	Name         string `json:"name"`
	Hostname     string `json:"hostname"`
	IP           string `json:"ip"`
	Type         string `json:"type"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	OSName       string `json:"os_name"`
	OSVersion    string `json:"os_version"`
	FirstSeen    string `json:"first_seen"`
	LastSeen     string `json:"last_seen"`
}

type deviceResource struct {
	ID         flexID           `json:"id"`
	Attributes deviceAttributes `json:"attributes"`
}

type listMeta struct {
	Total       int    `json:"total"`
	AccessToken string `json:"access_token"`
}

type deviceListEnvelope struct {
	Meta listMeta         `json:"meta"`
	Data []deviceResource `json:"data"`
}

type deviceEnvelope struct {
	Meta listMeta       `json:"meta"`
	Data deviceResource `json:"data"`
}

// toRecord collapses the loosely-typed resource into the strict form,
// preferring the envelope id over the nested one.
func (r deviceResource) toRecord() DeviceRecord {
	id := r.ID.String()
	if id == "" {
		id = r.Attributes.ID.String()
	}
	return DeviceRecord{
		ID:           id,
		OrgID:        r.Attributes.OrgID.String(),
		Name:         r.Attributes.Name,
		Hostname:     r.Attributes.Hostname,
		IP:           r.Attributes.IP,
		Type:         r.Attributes.Type,
		Manufacturer: r.Attributes.Manufacturer,
		Model:        r.Attributes.Model,
		Serial:       r.Attributes.Serial,
		OSName:       r.Attributes.OSName,
		OSVersion:    r.Attributes.OSVersion,
		FirstSeen:    r.Attributes.FirstSeen,
		LastSeen:     r.Attributes.LastSeen,
	}
}

// orgCreatedEnvelope covers every known location the upstream has been
// seen to put a freshly created resource id.
type orgCreatedEnvelope struct {
	ID   flexID `json:"id"`
	Data struct {
		ID         flexID `json:"id"`
		Attributes struct {
			ID flexID `json:"id"`
		} `json:"attributes"`
	} `json:"data"`
}

// createdOrgID extracts the new org id from whichever location the
// response used, or "" when none carried it.
func createdOrgID(body []byte) string {
	var envelope orgCreatedEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if id := envelope.ID.String(); id != "" {
			return id
		}
		if id := envelope.Data.ID.String(); id != "" {
			return id
		}
		if id := envelope.Data.Attributes.ID.String(); id != "" {
			return id
		}
	}

	// Some resource types answer with data as an array of one element.
	var listForm struct {
		Data []struct {
			ID flexID `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listForm); err == nil && len(listForm.Data) > 0 {
		return listForm.Data[0].ID.String()
	}

	return ""
}

// IdentityQuery carries the imperfect keys used to locate a device
// upstream, in priority order: serial, then hostname, then name.
type IdentityQuery struct {
	Serial   string
	Hostname string
}

func (q IdentityQuery) empty() bool {
	return strings.TrimSpace(q.Serial) == "" && strings.TrimSpace(q.Hostname) == ""
}

func itoa(v int) string { return strconv.Itoa(v) }
