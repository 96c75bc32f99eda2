package types

const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
	HeaderOpsToken  = "X-Ops-Token"
)
