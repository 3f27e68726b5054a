// Package es defines the core event-sourcing vocabulary shared by every
// other package in this module.
//
// # Overview
//
// This package defines the fundamental types and interfaces that the rest of
// the library builds on:
//   - StreamName: the "category-id" identity of a stream
//   - EventData / TimelineEvent: what is written vs. what is read back
//   - Position: the backend-agnostic bookkeeping carried by a stream token
//   - Codec: the wire-encoding collaborator applications supply
//   - Observer: the optional, zero-overhead-when-absent logging/tracing hook
//
// # Design Philosophy
//
// Everything here is pure data or a narrow interface. Nothing in this
// package touches a network or a database; concrete behavior lives in
// store.Adapter implementations, category.Category, and decider.Decider.
//
// # Stream Identity
//
// A stream is named by a (category, id) pair, rendered on the wire as
// "category-id" (see StreamName). The category names a kind of stream
// (e.g. "Favorites"); the id names one instance of it (e.g. a client id).
//
// # Versions
//
// Event indices are zero-based, dense, and strictly increasing within a
// stream. The public "version" of a stream equals lastIndex+1, so an empty
// stream has version 0. See Position for the full bookkeeping a token
// carries between a load and the append that follows it.
package es
