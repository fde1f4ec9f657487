package goveeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/mmiyara/govee-remote/internal/pkg/logging"
)

const defaultBaseURL = "https://openapi.api.govee.com"

const (
	devicesPath = "/router/api/v1/user/devices"
	statePath   = "/router/api/v1/device/state"
	controlPath = "/router/api/v1/device/control"
)

// Live talks to the Govee cloud API.  The vendor enforces a budget of
// 10 requests per minute per key; the limiter keeps us inside it so
// bursts queue locally instead of drawing 429s.
type Live struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	httpCli *http.Client
}

func NewLiveClient() *Live {
	return &Live{
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(10.0/60.0), 10),
		httpCli: &http.Client{},
	}
}

func (c *Live) WithAPIKey(key string) Cloud {
	nc := *c
	nc.apiKey = strings.TrimSpace(key)
	return &nc
}

func (c *Live) WithTimeout(d time.Duration) Cloud {
	nc := *c
	nc.timeout = d
	return &nc
}

func (c *Live) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *Live) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

// Response envelope common to all endpoints
type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Live) doRequest(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "waiting for request budget")
	}

	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request payload")
		}
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Govee-API-Key", c.apiKey)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: err.Error()}
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &Error{Kind: KindBadResponse, Code: resp.StatusCode, Message: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &Error{Kind: KindUnauthorized, Code: resp.StatusCode, Message: "check your API key"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, Code: resp.StatusCode, Message: "too many requests"}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: KindOther, Code: resp.StatusCode, Message: envelope.Message}
	case envelope.Code != http.StatusOK:
		return nil, &Error{Kind: KindBadResponse, Code: envelope.Code, Message: envelope.Message}
	}

	return envelope.Data, nil
}

func (c *Live) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, devicesPath, nil)
	return errors.Wrap(err, "testing connection")
}

func (c *Live) Devices(ctx context.Context) ([]Device, error) {
	logging.Logger(ctx).Info("Fetching devices from Govee API")

	data, err := c.doRequest(ctx, http.MethodGet, devicesPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing devices")
	}

	var rawDevices []RawDevice
	if err := json.Unmarshal(data, &rawDevices); err != nil {
		return nil, errors.Wrap(err, "parsing device list")
	}

	items := make([]Device, 0, len(rawDevices))
	for _, raw := range rawDevices {
		item := NewDevice(raw)
		logging.Logger(ctx).Debugf("Found device: %s", item)
		items = append(items, item)
	}

	logging.Logger(ctx).Infof("Discovered %d Govee devices", len(items))
	return items, nil
}

func (c *Live) DeviceState(ctx context.Context, dev Device) (*StateReport, error) {
	payload := map[string]string{
		"sku":    dev.SKU,
		"device": dev.ID,
	}

	data, err := c.doRequest(ctx, http.MethodGet, statePath, payload)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching state for device %s", dev.ID)
	}

	var report StateReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrapf(err, "parsing state for device %s", dev.ID)
	}

	return &report, nil
}

func (c *Live) Control(ctx context.Context, dev Device, cmd Command) error {
	payload := map[string]interface{}{
		"requestId": uuid.New().String(),
		"payload": map[string]interface{}{
			"sku":    dev.SKU,
			"device": dev.ID,
			"capability": map[string]interface{}{
				"type":     cmd.capabilityType(),
				"instance": cmd.capabilityInstance(),
				"value":    cmd.value(),
			},
		},
	}

	logging.Logger(ctx).Debugf("sending command to %s: %s.%s = %v",
		dev.ID, cmd.capabilityType(), cmd.capabilityInstance(), cmd.value())

	if _, err := c.doRequest(ctx, http.MethodPost, controlPath, payload); err != nil {
		return errors.Wrapf(err, "controlling device %s", dev.ID)
	}

	return nil
}
