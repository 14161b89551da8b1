// Package redis provides a retrying connection helper for the go-redis
// client, configured from the environment.
package redis
