// Package config loads environment variables into typed configuration
// structs using caarlos0/env field tags, with optional .env file support for
// local development.
package config
