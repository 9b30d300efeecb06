package qart

import "errors"

var (
	ErrNotFound      = errors.New("artifact not found")
	ErrMisconfigured = errors.New("artifact store needs an endpoint and a bucket")
)
