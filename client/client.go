// Package client implements the platform collaborator clients consumed by
// the lifecycle orchestrator and event publisher: the metadata service, the
// data service, and an optional remote configuration registry. These are
// thin HTTP/JSON clients — out-of-scope collaborators per the runtime's
// design, but a compiling, testable module needs concrete implementations
// rather than bare interfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldlink/adapter-sdk/model"
)

// HTTPClient is the minimal surface this package needs from an *http.Client,
// narrowed so tests can supply a fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func newHTTPClient() HTTPClient {
	return &http.Client{Timeout: 10 * time.Second}
}

// doJSON issues method to url with an optional JSON body, decoding a JSON
// response into out (if non-nil) and returning the HTTP status code.
func doJSON(ctx context.Context, hc HTTPClient, method, url string, body, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("client: failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("client: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("client: failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// DataClient is the platform's data (event) service contract.
type DataClient interface {
	Ping(ctx context.Context) error
	AddEvent(ctx context.Context, event model.Event) error
}

// MetadataClient is the platform's device/profile/service metadata contract.
type MetadataClient interface {
	Ping(ctx context.Context) error

	GetOrCreateAddressable(ctx context.Context, a model.Addressable) (model.Addressable, error)
	GetOrCreateDeviceService(ctx context.Context, name, callbackPath string, labels []string) (string, error)

	UploadProfile(ctx context.Context, p *model.DeviceProfile) (conflict bool, err error)
	HasProfile(ctx context.Context, name string) (bool, error)

	GetDevicesForService(ctx context.Context, serviceName string) ([]*model.Device, error)
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	CreateDevice(ctx context.Context, d *model.Device) (string, error)
	UpdateDevice(ctx context.Context, d *model.Device) error
	DeleteDevice(ctx context.Context, id string) error

	GetOrCreateSchedule(ctx context.Context, name, freq string) (conflict bool, err error)
	GetOrCreateScheduleEvent(ctx context.Context, name, schedule, path string) (conflict bool, err error)
	GetScheduleEvents(ctx context.Context) (map[string]struct{ Schedule, Path string }, error)
}

// RegistryClient is the optional remote configuration-registry contract,
// used to resolve configuration against a shared registry and to advertise
// this adapter's health-check endpoint once it is serving. When no registry
// URL is configured, the orchestrator never constructs one and all of this
// is skipped entirely.
type RegistryClient interface {
	Ping(ctx context.Context) error
	GetConfig(ctx context.Context, key string) ([]byte, bool, error)
	PutConfig(ctx context.Context, key string, value []byte) error
	RegisterService(ctx context.Context, name, healthCheckURL string) error
}
