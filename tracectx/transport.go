package tracectx

import "net/http"

// Transport is an http.RoundTripper that injects the correlation headers of
// the request's context into every outbound request. Wrap an http.Client's
// transport with it when calling collaborating services.
type Transport struct {
	// Base is the underlying round tripper; nil means
	// http.DefaultTransport.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	rc, ok := FromContext(req.Context())
	if !ok {
		return base.RoundTrip(req)
	}

	// Per RoundTripper contract the request must not be mutated.
	clone := req.Clone(req.Context())
	rc.Apply(clone.Header)
	return base.RoundTrip(clone)
}
