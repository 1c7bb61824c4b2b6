// Package connectors provides the source adapters that turn external
// endpoints into canonical draft records. Each adapter handles one
// source kind (feed, site, custom); the Registry dispatches on kind.
package connectors
