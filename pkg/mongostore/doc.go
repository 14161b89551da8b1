// Package mongostore implements the shim credential and pending
// authorization stores on MongoDB.
//
// Credentials are durable: multiple grants accumulate per (user, shim) pair
// and the latest by creation time wins. Pending authorizations are
// short-lived and expire via a TTL index.
package mongostore
