package preflight

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const probePrefix = ".despatch-probe-"

// CanWriteSharedOutput reports whether a file can be created in dir. A mode
// bit check cannot reveal share ACL problems, so a zero-byte file with a
// unique name is created and then removed. Removal is best effort.
func CanWriteSharedOutput(dir string) bool {
	if dir == "" {
		return false
	}
	probe := filepath.Join(dir, probePrefix+uuid.NewString())
	file, err := os.OpenFile(probe, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(probe)
		return false
	}
	_ = os.Remove(probe)
	return true
}
