package lz4mt

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats reports per-frame counters: block count and bytes in/out.
type Stats struct {
	Blocks   int64
	InBytes  int64
	OutBytes int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%d blocks, %s in, %s out",
		s.Blocks, humanize.Bytes(uint64(s.InBytes)), humanize.Bytes(uint64(s.OutBytes)))
}
