//go:build !linux

package fsutil

import (
	"os"
	"time"
)

func changeTime(os.FileInfo) (time.Time, bool) { return time.Time{}, false }
