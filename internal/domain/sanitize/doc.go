// Package sanitize rewrites archived pages so they render inert inside the
// app: archive chrome and redirects are stripped, resource URLs are made
// absolute and secure, links and forms are neutralized, and the body is
// marked with the snapshot it came from.
//
// Textual scheme passes run before parsing and after serialization to catch
// URLs the tree passes never visit, such as inline script bodies.
package sanitize
