//go:build !(darwin || (linux && (amd64 || arm64)) || windows)

package native

import (
	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/errors"
)

// Available reports whether this build has a native platform.
const Available = false

// Open reports that no native platform exists for this GOOS/GOARCH.
func Open(opts ...Option) (vtruntime.Platform, error) {
	return nil, errors.Unsupported(errors.PhasePlatform, "native calls are not available on this platform")
}
