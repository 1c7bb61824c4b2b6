// Package feed implements the source adapter for syndication feeds.
//
// RSS, Atom and JSON Feed documents are parsed with gofeed and flattened
// into plain maps so field mappings use the same dot paths as JSON sources:
// title, link, guid, description, content, published, updated, image,
// categories, author, custom.<name> and ext.<prefix>.<name>.
package feed
