// Package custom implements the source adapter for arbitrary endpoints.
//
// The payload format is taken from the content type, or sniffed from the
// body. JSON and XML items are addressed with dot paths ("data.0.title",
// "@href" for XML attributes); HTML items with CSS selectors, optionally
// suffixed "@attr". The "items" mapping locates the item collection.
package custom
