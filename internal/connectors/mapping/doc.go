// Package mapping turns source-native items into canonical DraftRecords.
//
// Adapters expose each parsed item as an Item that answers canonical
// field lookups. Build then cleans text, resolves relative URLs, parses
// dates and pass-through fields, and rejects items without a valid URL.
package mapping
