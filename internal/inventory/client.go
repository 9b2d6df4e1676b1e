package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultScanCap     = 1000
	identityFilterPage = 25
)

type Params struct {
	fx.In

	Log *zap.Logger
}

// Client talks to the external network inventory over its JSON API.
// Every call is scoped to a Session obtained from Login; sessions are
// cheap and fetched fresh for each reconciliation.
type Client struct {
	httpClient *http.Client
	log        *zap.Logger
}

func New(p Params) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        p.Log.Named("inventory.client"),
	}
}

var Module = fx.Module("inventory.client",
	fx.Provide(New),
)

// Login authenticates with a form POST and captures the session cookie.
// Credential failures and cookie-less responses both surface as ErrAuth.
func (c *Client) Login(ctx context.Context, baseURL, username, password string) (*Session, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory login: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("inventory login rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}

	cookie := sessionCookie(resp.Cookies())
	if cookie == "" {
		return nil, fmt.Errorf("%w: no session cookie in response", ErrAuth)
	}

	return &Session{baseURL: baseURL, cookie: cookie}, nil
}

func sessionCookie(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Name == "" || ck.Value == "" {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// ListDevices fetches one unfiltered page of devices plus the total the
// upstream claims to have. Callers must not trust any upstream-side org
// scoping and should run the result through FilterByOrg.
func (c *Client) ListDevices(ctx context.Context, sess *Session, limit, offset int) ([]DeviceRecord, int, error) {
	query := url.Values{}
	query.Set("limit", itoa(limit))
	query.Set("offset", itoa(offset))

	var envelope deviceListEnvelope
	if err := c.getJSON(ctx, sess, "list_devices", "/devices", query, &envelope); err != nil {
		return nil, 0, err
	}

	records := make([]DeviceRecord, 0, len(envelope.Data))
	for _, resource := range envelope.Data {
		records = append(records, resource.toRecord())
	}
	return records, envelope.Meta.Total, nil
}

// FilterByOrg keeps only the records belonging to orgID. The upstream's
// own filtering has been observed to leak foreign devices, so this is the
// authoritative scope check.
func FilterByOrg(records []DeviceRecord, orgID string) []DeviceRecord {
	if orgID == "" {
		return nil
	}
	kept := make([]DeviceRecord, 0, len(records))
	for _, rec := range records {
		if rec.OrgID == orgID {
			kept = append(kept, rec)
		}
	}
	return kept
}

// identityStrategy is one filtered probe in the ordered identity search.
type identityStrategy struct {
	field string
	op    string
	value string
	match func(DeviceRecord) bool
}

func identityStrategies(q IdentityQuery) []identityStrategy {
	serial := strings.TrimSpace(q.Serial)
	hostname := strings.TrimSpace(q.Hostname)

	strategies := make([]identityStrategy, 0, 5)
	if serial != "" {
		strategies = append(strategies, identityStrategy{
			field: "serial", op: "eq", value: serial,
			match: func(r DeviceRecord) bool { return strings.EqualFold(r.Serial, serial) },
		})
	}
	if hostname != "" {
		strategies = append(strategies,
			identityStrategy{
				field: "hostname", op: "eq", value: hostname,
				match: func(r DeviceRecord) bool { return strings.EqualFold(r.Hostname, hostname) },
			},
			identityStrategy{
				field: "name", op: "eq", value: hostname,
				match: func(r DeviceRecord) bool { return strings.EqualFold(r.Name, hostname) },
			},
			identityStrategy{
				field: "hostname", op: "like", value: hostname,
				match: func(r DeviceRecord) bool {
					return strings.Contains(strings.ToLower(r.Hostname), strings.ToLower(hostname))
				},
			},
			identityStrategy{
				field: "name", op: "like", value: hostname,
				match: func(r DeviceRecord) bool {
					return strings.Contains(strings.ToLower(r.Name), strings.ToLower(hostname))
				},
			},
		)
	}
	return strategies
}

// FindDeviceByIdentity locates a device upstream using imperfect keys,
// probing filtered queries in strict priority order: serial exact,
// hostname exact, name exact, hostname substring, name substring. When
// the upstream's filter endpoint is failing server-side, it degrades to
// one bounded unfiltered listing and applies the same priorities locally.
// Returns "" with a nil error when nothing matches.
func (c *Client) FindDeviceByIdentity(ctx context.Context, sess *Session, q IdentityQuery, scanCap int) (string, error) {
	if q.empty() {
		return "", nil
	}
	if scanCap <= 0 {
		scanCap = defaultScanCap
	}

	strategies := identityStrategies(q)

	for _, strategy := range strategies {
		id, err := c.queryDeviceID(ctx, sess, strategy)
		if err != nil {
			var upstream *UpstreamError
			if errors.As(err, &upstream) && upstream.ServerError() {
				c.log.Warn("filtered device query failing upstream, scanning unfiltered listing",
					zap.String("field", strategy.field),
					zap.Int("status", upstream.Status),
				)
				return c.scanForIdentity(ctx, sess, strategies, scanCap)
			}
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}

	return "", nil
}

func (c *Client) queryDeviceID(ctx context.Context, sess *Session, strategy identityStrategy) (string, error) {
	query := url.Values{}
	query.Set("limit", itoa(identityFilterPage))
	query.Set("offset", "0")
	query.Set(fmt.Sprintf("filter[%s]", strategy.field), strategy.op+":"+strategy.value)

	var envelope deviceListEnvelope
	if err := c.getJSON(ctx, sess, "find_device", "/devices", query, &envelope); err != nil {
		return "", err
	}

	// Filters are advisory only; verify the match locally before
	// trusting the id.
	for _, resource := range envelope.Data {
		rec := resource.toRecord()
		if strategy.match(rec) && rec.ID != "" {
			return rec.ID, nil
		}
	}
	return "", nil
}

func (c *Client) scanForIdentity(ctx context.Context, sess *Session, strategies []identityStrategy, scanCap int) (string, error) {
	records, _, err := c.ListDevices(ctx, sess, scanCap, 0)
	if err != nil {
		return "", err
	}

	for _, strategy := range strategies {
		for _, rec := range records {
			if strategy.match(rec) && rec.ID != "" {
				return rec.ID, nil
			}
		}
	}
	return "", nil
}

// fetchDeviceForWrite reads the device and the single-use write token its
// response carries. The upstream only honors writes presented with a
// token from an immediately preceding read.
func (c *Client) fetchDeviceForWrite(ctx context.Context, sess *Session, deviceID string) (deviceResource, string, error) {
	var envelope deviceEnvelope
	if err := c.getJSON(ctx, sess, "get_device", "/devices/"+url.PathEscape(deviceID), nil, &envelope); err != nil {
		return deviceResource{}, "", err
	}
	if envelope.Meta.AccessToken == "" {
		return deviceResource{}, "", upstreamErr("get_device", http.StatusOK, "response carried no access token")
	}
	return envelope.Data, envelope.Meta.AccessToken, nil
}

// UpdateDeviceOrganization moves a device to orgID. The upstream only
// supports full-record replacement, so the current identifying attributes
// are read back and resubmitted alongside the new org id; dropping them
// would blank the fields upstream.
func (c *Client) UpdateDeviceOrganization(ctx context.Context, sess *Session, deviceID, orgID string) error {
	current, token, err := c.fetchDeviceForWrite(ctx, sess, deviceID)
	if err != nil {
		return err
	}

	attrs := map[string]any{
		"org_id":   orgID,
		"name":     current.Attributes.Name,
		"hostname": current.Attributes.Hostname,
		"serial":   current.Attributes.Serial,
		"ip":       current.Attributes.IP,
	}
	payload := map[string]any{
		"access_token": token,
		"data": map[string]any{
			"id":         deviceID,
			"type":       "devices",
			"attributes": attrs,
		},
	}

	if err := c.sendJSON(ctx, sess, "update_device_org", http.MethodPatch, "/devices/"+url.PathEscape(deviceID), payload, nil); err != nil {
		return err
	}

	c.log.Info("device reassigned upstream",
		zap.String("device_id", deviceID),
		zap.String("org_id", orgID),
	)
	return nil
}

// CreateOrganization creates an org upstream and returns its id. The
// create endpoint needs the same token-fetch-then-write dance as device
// updates, and the created id wanders between response locations across
// upstream versions; an id we cannot find is an error, not a silent "".
func (c *Client) CreateOrganization(ctx context.Context, sess *Session, name, parentID string) (string, error) {
	var tokenEnvelope struct {
		Meta listMeta `json:"meta"`
	}
	if err := c.getJSON(ctx, sess, "list_orgs", "/orgs", url.Values{"limit": {"1"}}, &tokenEnvelope); err != nil {
		return "", err
	}
	if tokenEnvelope.Meta.AccessToken == "" {
		return "", upstreamErr("list_orgs", http.StatusOK, "response carried no access token")
	}

	attrs := map[string]any{"name": name}
	if parentID != "" {
		attrs["parent_id"] = parentID
	}
	payload := map[string]any{
		"access_token": tokenEnvelope.Meta.AccessToken,
		"data": map[string]any{
			"type":       "orgs",
			"attributes": attrs,
		},
	}

	var body []byte
	if err := c.sendJSON(ctx, sess, "create_org", http.MethodPost, "/orgs", payload, &body); err != nil {
		return "", err
	}

	id := createdOrgID(body)
	if id == "" {
		c.log.Error("org created upstream but response carried no recognizable id",
			zap.String("name", name),
			zap.ByteString("body", truncate(body, 512)),
		)
		return "", upstreamErr("create_org", http.StatusOK, "created org id not found in response")
	}

	c.log.Info("organization created upstream",
		zap.String("name", name),
		zap.String("org_id", id),
	)
	return id, nil
}

func (c *Client) getJSON(ctx context.Context, sess *Session, op, path string, query url.Values, out any) error {
	endpoint := sess.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", sess.cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inventory %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("inventory %s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamErr(op, resp.StatusCode, truncateString(body, 256))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return upstreamErr(op, resp.StatusCode, "malformed response body: "+err.Error())
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, sess *Session, op, method, path string, payload any, rawOut *[]byte) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, sess.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", sess.cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inventory %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("inventory %s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamErr(op, resp.StatusCode, truncateString(body, 256))
	}

	if rawOut != nil {
		*rawOut = body
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

func truncateString(b []byte, n int) string {
	return strings.TrimSpace(string(truncate(b, n)))
}
