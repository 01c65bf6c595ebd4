// Package ident extracts stable identifiers from free-form reference strings.
//
// Upstream records point at related records by URL, for example
// "https://example.org/films/2baf70d1". The Extractor returns the trailing
// text that follows a fixed marker so it can be used as a join key.
package ident
