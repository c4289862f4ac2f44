// Package database provides a registry of named connections with optional
// read replicas, configuration types, migrations, logging, health checks,
// and related utilities built on top of Bun.
package database
