package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one counter for every exporter. Event is the attribute
// value OTel uses for session counters; request counters leave it empty.
type CounterDef struct {
	ID    goAuthClient.MetricID
	Name  string
	Help  string
	Event string
}

// HistogramDef names one histogram for every exporter.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricSignInSuccess, Name: "authclient_sign_in_success_total", Help: "Successful sign-ins.", Event: "sign_in_success"},
	{ID: goAuthClient.MetricSignInFailure, Name: "authclient_sign_in_failure_total", Help: "Failed sign-in attempts.", Event: "sign_in_failure"},
	{ID: goAuthClient.MetricSignUpSuccess, Name: "authclient_sign_up_success_total", Help: "Successful sign-ups.", Event: "sign_up_success"},
	{ID: goAuthClient.MetricSignUpFailure, Name: "authclient_sign_up_failure_total", Help: "Failed sign-up attempts.", Event: "sign_up_failure"},
	{ID: goAuthClient.MetricSignOut, Name: "authclient_sign_out_total", Help: "Sign-out operations.", Event: "sign_out"},
	{ID: goAuthClient.MetricHydrateAuthenticated, Name: "authclient_hydrate_authenticated_total", Help: "Hydrations that restored a session.", Event: "hydrate_authenticated"},
	{ID: goAuthClient.MetricHydrateAnonymous, Name: "authclient_hydrate_anonymous_total", Help: "Hydrations that resolved to anonymous.", Event: "hydrate_anonymous"},
	{ID: goAuthClient.MetricHydrateRecovered, Name: "authclient_hydrate_recovered_total", Help: "Hydrations that cleared a broken or expired stored session.", Event: "hydrate_recovered"},
	{ID: goAuthClient.MetricSessionExpired, Name: "authclient_session_expired_total", Help: "Authenticated sessions ended by a 401 response.", Event: "session_expired"},
	{ID: goAuthClient.MetricRequestSuccess, Name: "authclient_request_success_total", Help: "Requests answered with 2xx and a decodable body."},
	{ID: goAuthClient.MetricRequestNetworkError, Name: "authclient_request_network_error_total", Help: "Requests that got no response."},
	{ID: goAuthClient.MetricRequestDecodeError, Name: "authclient_request_decode_error_total", Help: "2xx responses whose body could not be decoded."},
	{ID: goAuthClient.MetricRequestUnauthorized, Name: "authclient_request_unauthorized_total", Help: "Requests answered with 401."},
	{ID: goAuthClient.MetricRequestForbidden, Name: "authclient_request_forbidden_total", Help: "Requests answered with 403."},
	{ID: goAuthClient.MetricRequestServerError, Name: "authclient_request_server_error_total", Help: "Requests answered with 5xx."},
	{ID: goAuthClient.MetricRequestHTTPError, Name: "authclient_request_http_error_total", Help: "Requests answered with any other non-2xx status."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "Gateway request latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "authclient_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
