package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/fieldlink/adapter-sdk/model"
)

// httpMetadataClient is the default MetadataClient, talking to the
// platform's metadata service over HTTP.
type httpMetadataClient struct {
	baseURL string
	hc      HTTPClient
}

// NewMetadataClient creates a MetadataClient pointed at host:port.
func NewMetadataClient(host string, port int) MetadataClient {
	return &httpMetadataClient{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		hc:      newHTTPClient(),
	}
}

func (c *httpMetadataClient) Ping(ctx context.Context) error {
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/ping", nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("client: metadata service ping returned status %d", status)
	}
	return nil
}

func (c *httpMetadataClient) GetOrCreateAddressable(ctx context.Context, a model.Addressable) (model.Addressable, error) {
	var existing model.Addressable
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/addressable/name/"+a.Name, nil, &existing)
	if err != nil {
		return model.Addressable{}, err
	}
	if status == http.StatusOK {
		return existing, nil
	}

	var created model.Addressable
	status, err = doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/v1/addressable", a, &created)
	if err != nil {
		return model.Addressable{}, err
	}
	if status == http.StatusConflict {
		// Idempotent create: another caller beat us to it; re-fetch.
		status, err = doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/addressable/name/"+a.Name, nil, &existing)
		if err != nil {
			return model.Addressable{}, err
		}
		return existing, nil
	}
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	return created, nil
}

func (c *httpMetadataClient) GetOrCreateDeviceService(ctx context.Context, name, callbackPath string, labels []string) (string, error) {
	type serviceReq struct {
		Name           string   `json:"name"`
		CallbackPath   string   `json:"callbackPath"`
		Labels         []string `json:"labels,omitempty"`
		OperatingState string   `json:"operatingState"`
		AdminState     string   `json:"adminState"`
	}
	var out struct {
		ID string `json:"id"`
	}
	status, err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/v1/deviceservice", serviceReq{
		Name:           name,
		CallbackPath:   callbackPath,
		Labels:         labels,
		OperatingState: string(model.Enabled),
		AdminState:     string(model.Unlocked),
	}, &out)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict || out.ID == "" {
		status, err = doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/deviceservice/name/"+name, nil, &out)
		if err != nil {
			return "", err
		}
		if status != http.StatusOK {
			return "", fmt.Errorf("client: failed to fetch existing device service %q: status %d", name, status)
		}
	}
	return out.ID, nil
}

func (c *httpMetadataClient) UploadProfile(ctx context.Context, p *model.DeviceProfile) (bool, error) {
	status, err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/v1/deviceprofile", p, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusConflict, nil
}

func (c *httpMetadataClient) HasProfile(ctx context.Context, name string) (bool, error) {
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/deviceprofile/name/"+name, nil, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

func (c *httpMetadataClient) GetDevicesForService(ctx context.Context, serviceName string) ([]*model.Device, error) {
	var out []*model.Device
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/device/servicename/"+serviceName, nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("client: failed to list devices for service %q: status %d", serviceName, status)
	}
	return out, nil
}

func (c *httpMetadataClient) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	var d model.Device
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/device/"+id, nil, &d)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("client: device %q not found: status %d", id, status)
	}
	return &d, nil
}

func (c *httpMetadataClient) CreateDevice(ctx context.Context, d *model.Device) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	status, err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/v1/device", d, &out)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict {
		existing, err := c.getDeviceByName(ctx, d.Name)
		if err != nil {
			return "", err
		}
		return existing.ID, nil
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	return out.ID, nil
}

func (c *httpMetadataClient) getDeviceByName(ctx context.Context, name string) (*model.Device, error) {
	var d model.Device
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/device/name/"+name, nil, &d)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("client: device named %q not found: status %d", name, status)
	}
	return &d, nil
}

func (c *httpMetadataClient) UpdateDevice(ctx context.Context, d *model.Device) error {
	status, err := doJSON(ctx, c.hc, http.MethodPut, c.baseURL+"/api/v1/device/"+d.ID, d, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("client: update device %q returned status %d", d.ID, status)
	}
	return nil
}

func (c *httpMetadataClient) DeleteDevice(ctx context.Context, id string) error {
	status, err := doJSON(ctx, c.hc, http.MethodDelete, c.baseURL+"/api/v1/device/"+id, nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("client: delete device %q returned status %d", id, status)
	}
	return nil
}

func (c *httpMetadataClient) GetOrCreateSchedule(ctx context.Context, name, freq string) (bool, error) {
	type req struct {
		Name string `json:"name"`
		Freq string `json:"frequency"`
	}
	status, err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/v1/schedule", req{Name: name, Freq: freq}, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusConflict, nil
}

func (c *httpMetadataClient) GetOrCreateScheduleEvent(ctx context.Context, name, schedule, path string) (bool, error) {
	type req struct {
		Name     string `json:"name"`
		Schedule string `json:"schedule"`
		Path     string `json:"path"`
	}
	status, err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/v1/scheduleevent", req{
		Name: name, Schedule: schedule, Path: path,
	}, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusConflict, nil
}

func (c *httpMetadataClient) GetScheduleEvents(ctx context.Context) (map[string]struct{ Schedule, Path string }, error) {
	var out []struct {
		Name     string `json:"name"`
		Schedule string `json:"schedule"`
		Path     string `json:"path"`
	}
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/scheduleevent", nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("client: list schedule events returned status %d", status)
	}

	result := make(map[string]struct{ Schedule, Path string }, len(out))
	for _, e := range out {
		result[e.Name] = struct{ Schedule, Path string }{Schedule: e.Schedule, Path: e.Path}
	}
	return result, nil
}
