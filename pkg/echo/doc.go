// Package echo decides what a UART echoes back for each received byte.
package echo

// The engine is driven by a single owner (the I/O loop) one byte at a
// time. It never blocks, never fails and never allocates per byte: the
// output of each call fits in a fixed 3-byte buffer.
