package types

// Request carries the request metadata used for visitor exclusion.
type Request struct {
	// IP is the client address as seen by the host application.
	IP string

	// UserAgent is the raw User-Agent header. An empty value counts as a
	// robot under the default robot pattern.
	UserAgent string
}

// VisitorContext is the explicit per-request visitor state passed to every
// entry point of the Manager.
//
// It replaces ambient request/session/params lookups: the host application
// builds one value per request and hands it in.
type VisitorContext struct {
	// ID identifies the visitor when records live in the shared store.
	// Left empty, the Manager generates one on first use.
	ID string

	// Session is session-equivalent storage used by session persistence.
	// The Manager allocates it when nil.
	Session map[string]string

	// Request holds optional request metadata (IP, user agent).
	Request *Request

	// Params holds optional override parameters, keyed by experiment name.
	Params map[string]string
}

// Param returns a request parameter.
//
// Parameters:
//   - name: Parameter name
//
// Returns:
//   - string: Parameter value
//   - bool: true if the parameter is present and non-empty
func (vc *VisitorContext) Param(name string) (string, bool) {
	if vc == nil || vc.Params == nil {
		return "", false
	}

	v, ok := vc.Params[name]

	return v, ok && v != ""
}
