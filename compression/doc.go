// Package compression implements a run-length encoder and decoder with two wire
// formats.
//
// Every compressed stream starts with one byte giving the mode it was written
// in: 0 for Basic, 1 for Advance. The rest of the stream is a sequence of
// records, back to back, with no padding.
//
// Basic mode is the simplest possible RLE. Each run of up to 255 identical bytes
// is written as the run length followed by the byte:
//
//	AAAAABCC
//	05 41 01 42 02 43
//
// Longer runs are split, so 300 "A" becomes `FF 41 2D 41`. The downside is that
// data with no repetition doubles in size, since every byte is a run of one.
//
// Advance mode fixes that by splitting the counter byte's range in two. Counters
// of 128 and up are run records, with the run length being the counter minus
// 126, so a run record holds between 2 and 128 bytes. Counters from 1 to 127 are
// literal records, with the counter giving the number of bytes that follow
// verbatim:
//
//	AAAAABCDCC
//	83 41 03 42 43 44 80 43
//
// Incompressible input grows by one byte per 127 bytes instead of doubling.
//
// A literal record is assembled in the writer's output buffer by bumping its
// counter byte in place. When the buffer is flushed the counter is gone, so a
// literal record never spans a flush. The output can therefore differ slightly
// depending on the writer's buffer size, but it always decodes to the same
// thing.
package compression
