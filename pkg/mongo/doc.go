// Package mongo provides MongoDB connection management for the shim server.
//
// Configuration is environment-driven and connection establishment retries
// transient failures, so the server can start before its database finishes
// booting in orchestrated deployments.
package mongo
