package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fieldlink/adapter-sdk/model"
)

// httpDataClient is the default DataClient, posting events to the
// platform's data service over HTTP.
type httpDataClient struct {
	baseURL string
	hc      HTTPClient
}

// NewDataClient creates a DataClient pointed at host:port.
func NewDataClient(host string, port int) DataClient {
	return &httpDataClient{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		hc:      newHTTPClient(),
	}
}

func (c *httpDataClient) Ping(ctx context.Context) error {
	status, err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/v1/ping", nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("client: data service ping returned status %d", status)
	}
	return nil
}

func (c *httpDataClient) AddEvent(ctx context.Context, event model.Event) error {
	status, err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/v1/event", event, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("client: add event returned status %d", status)
	}
	return nil
}
