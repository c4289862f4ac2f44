// Package repository provides a generic repository abstraction built on Bun
// with structured conditions, pagination, upsert support, and schema-driven
// entity construction from column/value maps.
package repository
