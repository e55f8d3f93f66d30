// Package lz4mt implements a concurrent LZ4 frame format encoder and
// decoder: bounded worker fan-out over blocks, an ordered commit chain
// that makes parallel-mode output byte-identical to sequential-mode
// output, and the streaming XXH32 checksums the frame format requires.
package lz4mt
