//go:build !linux

package retention

import (
	"io/fs"
	"time"
)

// CreationTime returns the modification time; birth time is only read on linux.
func CreationTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
