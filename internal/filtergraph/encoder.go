package filtergraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCodec rejects codec/hardware combinations outside the
// selection table. The builder never degrades silently.
var ErrUnsupportedCodec = errors.New("unsupported codec")

// Platform keys the hardware column of the selection table. It is an
// explicit input so selection stays deterministic instead of probing.
type Platform string

const (
	PlatformDarwin  Platform = "darwin"
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
)

// Selection is the resolved encoder choice.
type Selection struct {
	Name     string
	Family   string
	Hardware bool
}

// codecFamily normalizes probed/requested codec names to a family key.
func codecFamily(codec string) string {
	switch strings.ToLower(codec) {
	case "h264", "avc", "avc1", "libx264":
		return "h264"
	case "hevc", "h265", "hvc1", "libx265":
		return "hevc"
	case "vp9", "libvpx-vp9":
		return "vp9"
	case "av1", "libaom-av1", "libsvtav1":
		return "av1"
	}
	return ""
}

var softwareEncoders = map[string]string{
	"h264": "libx264",
	"hevc": "libx265",
	"vp9":  "libvpx-vp9",
	"av1":  "libsvtav1",
}

var hardwareEncoders = map[string]map[Platform]string{
	"h264": {
		PlatformDarwin:  "h264_videotoolbox",
		PlatformLinux:   "h264_nvenc",
		PlatformWindows: "h264_nvenc",
	},
	"hevc": {
		PlatformDarwin:  "hevc_videotoolbox",
		PlatformLinux:   "hevc_nvenc",
		PlatformWindows: "hevc_nvenc",
	},
	"av1": {
		PlatformLinux:   "av1_nvenc",
		PlatformWindows: "av1_nvenc",
	},
}

// SelectEncoder maps (codec, hardware preference, platform) to a concrete
// encoder. Hardware selection failing for the family/platform is an error,
// not a silent software fallback.
func SelectEncoder(codec string, useHardware bool, platform Platform) (Selection, error) {
	family := codecFamily(codec)
	if family == "" {
		return Selection{}, fmt.Errorf("%w: %q", ErrUnsupportedCodec, codec)
	}
	if useHardware {
		name, ok := hardwareEncoders[family][platform]
		if !ok {
			return Selection{}, fmt.Errorf("%w: no hardware encoder for %s on %s", ErrUnsupportedCodec, family, platform)
		}
		return Selection{Name: name, Family: family, Hardware: true}, nil
	}
	return Selection{Name: softwareEncoders[family], Family: family, Hardware: false}, nil
}
