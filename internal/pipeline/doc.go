// Package pipeline implements the pure transform core: turning independently
// fetched, irregularly dated observation series into a single date-aligned
// table, with optional percent-change and z-score transforms.
//
// Every stage is a pure function over in-memory values. Nothing here performs
// I/O, holds state between invocations, or mutates its inputs; each stage
// returns a fresh value consumed by the next. Fetching, caching, and export
// live in their own packages (internal/fred, internal/exporter).
package pipeline
