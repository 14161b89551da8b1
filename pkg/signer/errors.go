package signer

import "errors"

var (
	ErrMissingClientCredentials = errors.New("client id and client secret are required for signing")
	ErrMissingTokenSecret       = errors.New("token secret is required when a token is present")
	ErrInvalidRequestURL        = errors.New("request url cannot be parsed for signing")
)
