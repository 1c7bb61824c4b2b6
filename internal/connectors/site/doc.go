// Package site implements the source adapter for websites.
//
// A site endpoint is usually a WordPress REST collection such as
// /wp-json/wp/v2/posts, fetched with _embed so featured media and terms
// arrive inline. Endpoints answering with RSS or Atom are parsed as feeds,
// and anything else is scraped as HTML using the default item containers.
package site
