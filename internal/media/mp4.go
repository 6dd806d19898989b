// Package media reads playback durations out of exported voice clips.
package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNoMovieHeader means the data holds no mvhd box.
	ErrNoMovieHeader = errors.New("mvhd box not found")

	mvhdTag = []byte("mvhd")
)

// MP4Duration returns the movie duration declared in the mvhd box,
// normalized by its time scale.
func MP4Duration(data []byte) (time.Duration, error) {
	pos := bytes.Index(data, mvhdTag)
	if pos < 0 {
		return 0, ErrNoMovieHeader
	}
	body := data[pos+len(mvhdTag):]
	if len(body) < 1 {
		return 0, fmt.Errorf("truncated mvhd box")
	}

	var scale uint32
	var units uint64
	switch version := body[0]; version {
	case 0:
		// version+flags, creation, modification: 12 bytes
		if len(body) < 20 {
			return 0, fmt.Errorf("truncated mvhd v0 box")
		}
		scale = binary.BigEndian.Uint32(body[12:16])
		units = uint64(binary.BigEndian.Uint32(body[16:20]))
	case 1:
		// version+flags, 64-bit creation and modification: 20 bytes
		if len(body) < 32 {
			return 0, fmt.Errorf("truncated mvhd v1 box")
		}
		scale = binary.BigEndian.Uint32(body[20:24])
		units = binary.BigEndian.Uint64(body[24:32])
	default:
		return 0, fmt.Errorf("unknown mvhd version %d", version)
	}

	if scale == 0 {
		return 0, nil
	}
	seconds := float64(units) / float64(scale)
	if seconds > math.MaxInt64/float64(time.Second) {
		return 0, fmt.Errorf("mvhd duration overflows: %d/%d", units, scale)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
