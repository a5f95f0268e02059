package translate

import (
	"net/http"
)

// headerTransport wraps a RoundTripper to add fixed credential headers.
type headerTransport struct {
	BaseTransport http.RoundTripper
	Headers       map[string]string
}

// RoundTrip implements the RoundTripper interface to modify the request.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid side effects
	reqClone := req.Clone(req.Context())
	for k, v := range t.Headers {
		reqClone.Header.Set(k, v)
	}

	base := t.BaseTransport
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(reqClone)
}

func newHTTPClientWithHeaders(headers map[string]string) *http.Client {
	return &http.Client{
		Transport: &headerTransport{
			BaseTransport: http.DefaultTransport,
			Headers:       headers,
		},
	}
}
