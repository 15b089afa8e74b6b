package geocoding

// Status values reported by the geocoding endpoint.
const (
	StatusOK           = "OK"
	StatusZeroResults  = "ZERO_RESULTS"
	StatusInvalid      = "INVALID_REQUEST"
	StatusOverLimit    = "OVER_QUERY_LIMIT"
	StatusDenied       = "REQUEST_DENIED"
	StatusUnknownError = "UNKNOWN_ERROR"
)
