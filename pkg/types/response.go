package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of every failed storefront or back-office call.
// RequestID echoes the X-Request-Id header so a shopper report can be matched
// to the server logs.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
