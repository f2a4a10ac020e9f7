package client

import (
	"context"
	"fmt"
	"net/http"
)

// httpRegistryClient is the default RegistryClient for a remote
// configuration registry.
type httpRegistryClient struct {
	baseURL string
	hc      HTTPClient
}

// NewRegistryClient creates a RegistryClient pointed at the given base URL.
// Callers should only construct one when a registry URL is actually
// configured; see design note: "Config registry absent".
func NewRegistryClient(baseURL string) RegistryClient {
	return &httpRegistryClient{baseURL: baseURL, hc: newHTTPClient()}
}

func (c *httpRegistryClient) Ping(ctx context.Context) error {
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/v1/kv/ping", nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("client: registry ping returned status %d", status)
	}
	return nil
}

func (c *httpRegistryClient) GetConfig(ctx context.Context, key string) ([]byte, bool, error) {
	var out struct {
		Value []byte `json:"value"`
	}
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/v1/kv/"+key, nil, &out)
	if err != nil {
		return nil, false, err
	}
	if status == http.StatusNotFound {
		return nil, false, nil
	}
	if status != http.StatusOK {
		return nil, false, fmt.Errorf("client: get config %q returned status %d", key, status)
	}
	return out.Value, true, nil
}

func (c *httpRegistryClient) PutConfig(ctx context.Context, key string, value []byte) error {
	status, err := doJSON(ctx, c.hc, http.MethodPut, c.baseURL+"/v1/kv/"+key, struct {
		Value []byte `json:"value"`
	}{Value: value}, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("client: put config %q returned status %d", key, status)
	}
	return nil
}

func (c *httpRegistryClient) RegisterService(ctx context.Context, name, healthCheckURL string) error {
	status, err := doJSON(ctx, c.hc, http.MethodPut, c.baseURL+"/v1/agent/service/register", struct {
		Name string `json:"name"`
		Check struct {
			HTTP     string `json:"http"`
			Interval string `json:"interval"`
		} `json:"check"`
	}{
		Name: name,
		Check: struct {
			HTTP     string `json:"http"`
			Interval string `json:"interval"`
		}{HTTP: healthCheckURL, Interval: "30s"},
	}, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("client: register service %q returned status %d", name, status)
	}
	return nil
}
