// Package normalisers provides the Registry that dispatches uploads to the
// format-specific normalisers in its subpackages. Each normaliser extracts
// the plain text of one family of formats.
//
// Normalisers are registered with the Registry at startup via RegisterDefaults.
package normalisers
