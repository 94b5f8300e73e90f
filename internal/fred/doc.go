// Package fred implements the series fetcher against the FRED
// (Federal Reserve Economic Data) observations API, plus an explicit TTL
// cache that sits between callers and the client. It is the only package
// that performs network I/O; everything it returns is an immutable
// pipeline.Series ready for the pure transform core.
package fred
