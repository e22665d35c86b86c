package utils

import (
	"net/http"
	"time"

	"plexboard/shared"
)

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", shared.USER_AGENT)
	rt := uart.RT
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &UARoundtripper{},
		Timeout:   10 * time.Second,
	}
}

// NewStreamingClient has no timeout as it holds long-lived event
// stream connections open.
func NewStreamingClient() *http.Client {
	return &http.Client{
		Transport: &UARoundtripper{},
	}
}
