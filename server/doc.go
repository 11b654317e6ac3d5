// Package server composes providers and transforms into a single MCP
// component catalog. A Server owns an ordered provider list (its own
// in-memory registry first), a transform chain applied to every
// operation, and the boundary where visibility marks become actual
// filtering and misses become NotFoundError values.
//
// Servers nest: Mount attaches another Server as a provider, optionally
// under a namespace, with the mounted server's own pipeline intact.
package server
