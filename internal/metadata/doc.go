// Package metadata describes audiobooks and resolves catalog identifiers to
// book descriptions.
//
// Resolver is the seam for catalog lookups. SidecarResolver answers from JSON
// records kept in a directory, the same <id>.json records aaxsplit writes
// next to every converted book. Containers without a catalog record fall back
// to FromProbe, which reads the container's own tags.
package metadata
