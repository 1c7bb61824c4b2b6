// Package memory provides in-memory caches used when no database path is configured.
// Contents last for the life of the process.
package memory
