package recording

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tcolgate/mp3"
)

// ProbeDuration opens the audio container at path just far enough to
// read its declared duration and returns it in milliseconds. Any
// failure, including an unrecognized container, yields 0: an unknown
// duration is not fatal, matching and sync proceed without it.
func ProbeDuration(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	var (
		d       time.Duration
		probeEr error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		d, probeEr = wavDuration(f)
	case ".mp3":
		d, probeEr = mp3Duration(f)
	case ".m4a", ".3gp", ".aac":
		// .aac is usually an MP4 container on the recorders that emit
		// it; raw ADTS streams fail the box walk and report 0.
		d, probeEr = mp4Duration(f)
	case ".amr":
		d, probeEr = amrDuration(f)
	default:
		return 0
	}

	if probeEr != nil || d < 0 {
		return 0
	}

	return d.Milliseconds()
}

var errBadContainer = errors.New("unrecognized audio container")

// wavDuration walks the RIFF chunk list for fmt (byte rate) and data
// (payload length). Duration is payload length over byte rate.
func wavDuration(r io.ReadSeeker) (time.Duration, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, err
	}

	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, errBadContainer
	}

	var (
		byteRate uint32
		dataLen  uint32
	)

	for byteRate == 0 || dataLen == 0 {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return 0, err
		}

		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return 0, errBadContainer
			}

			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return 0, err
			}

			byteRate = binary.LittleEndian.Uint32(fmtChunk[8:12])

			if _, err := r.Seek(int64(size)-16, io.SeekCurrent); err != nil {
				return 0, err
			}

		case "data":
			dataLen = size

			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}

		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return 0, err
			}
		}
	}

	if byteRate == 0 {
		return 0, errBadContainer
	}

	return time.Duration(dataLen) * time.Second / time.Duration(byteRate), nil
}

// mp3Duration walks every frame and sums per-frame durations. MP3 has
// no header-declared length, and recorders produce VBR files often
// enough that estimating from the first frame's bitrate is wrong.
func mp3Duration(r io.Reader) (time.Duration, error) {
	dec := mp3.NewDecoder(r)

	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)

	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			break
		}

		total += frame.Duration()
	}

	if total == 0 {
		return 0, errBadContainer
	}

	return total, nil
}

// mp4Duration finds the mvhd box inside moov and reads the movie
// timescale and duration. Covers m4a, 3gp and mp4-wrapped aac, which
// all share the ISO base media layout.
func mp4Duration(r io.ReadSeeker) (time.Duration, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	moovStart, moovEnd, err := findBox(r, 0, end, "moov")
	if err != nil {
		return 0, err
	}

	mvhdStart, _, err := findBox(r, moovStart, moovEnd, "mvhd")
	if err != nil {
		return 0, err
	}

	if _, err := r.Seek(mvhdStart, io.SeekStart); err != nil {
		return 0, err
	}

	var version [4]byte // version + flags
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return 0, err
	}

	var (
		timescale uint32
		duration  uint64
	)

	if version[0] == 1 {
		// 64-bit times: creation and modification are 8 bytes each.
		var body [28]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return 0, err
		}

		timescale = binary.BigEndian.Uint32(body[16:20])
		duration = binary.BigEndian.Uint64(body[20:28])
	} else {
		var body [16]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return 0, err
		}

		timescale = binary.BigEndian.Uint32(body[8:12])
		duration = uint64(binary.BigEndian.Uint32(body[12:16]))
	}

	if timescale == 0 {
		return 0, errBadContainer
	}

	return time.Duration(duration) * time.Second / time.Duration(timescale), nil
}

// findBox scans the box list between start and end for the named box
// and returns the byte range of its payload.
func findBox(r io.ReadSeeker, start, end int64, name string) (int64, int64, error) {
	offset := start

	for offset+8 <= end {
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return 0, 0, err
		}

		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return 0, 0, err
		}

		size := int64(binary.BigEndian.Uint32(hdr[0:4]))
		payload := offset + 8

		if size == 1 {
			var ext [8]byte
			if _, err := io.ReadFull(r, ext[:]); err != nil {
				return 0, 0, err
			}

			size = int64(binary.BigEndian.Uint64(ext[:]))
			payload = offset + 16
		}

		if size < 8 || offset+size > end {
			return 0, 0, errBadContainer
		}

		if string(hdr[4:8]) == name {
			return payload, offset + size, nil
		}

		offset += size
	}

	return 0, 0, errBadContainer
}

// amrFrameSizes maps the AMR-NB frame-type nibble to the payload size
// in bytes, excluding the one-byte frame header. Types 9-14 are
// reserved and type 15 is a no-data frame.
var amrFrameSizes = [16]int{12, 13, 15, 17, 19, 20, 26, 31, 5, 0, 0, 0, 0, 0, 0, 0}

// amrDuration counts AMR-NB frames; every frame spans exactly 20ms.
func amrDuration(r io.ReadSeeker) (time.Duration, error) {
	var magic [6]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, err
	}

	if string(magic[:]) != "#!AMR\n" {
		return 0, errBadContainer
	}

	frames := 0

	for {
		var hdr [1]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			break
		}

		frameType := (hdr[0] >> 3) & 0x0F

		if _, err := r.Seek(int64(amrFrameSizes[frameType]), io.SeekCurrent); err != nil {
			break
		}

		frames++
	}

	if frames == 0 {
		return 0, errBadContainer
	}

	return time.Duration(frames) * 20 * time.Millisecond, nil
}
