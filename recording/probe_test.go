package recording

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	return path
}

// wavFixture builds a minimal RIFF/WAVE header declaring the given byte
// rate and data length. The data payload itself is absent; probing only
// seeks over it.
func wavFixture(byteRate, dataLen uint32) []byte {
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))

	var fmtChunk [16]byte
	binary.LittleEndian.PutUint32(fmtChunk[8:12], byteRate)
	buf.Write(fmtChunk[:])

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)

	return buf.Bytes()
}

func TestProbeDuration_WAV(t *testing.T) {
	// 32000 payload bytes at 16000 bytes per second is two seconds.
	path := writeFixture(t, "call.wav", wavFixture(16000, 32000))

	assert.Equal(t, int64(2000), ProbeDuration(path))
}

func TestProbeDuration_WAVZeroByteRate(t *testing.T) {
	path := writeFixture(t, "call.wav", wavFixture(0, 32000))

	assert.Equal(t, int64(0), ProbeDuration(path))
}

func amrFixture(frames int) []byte {
	var buf bytes.Buffer

	buf.WriteString("#!AMR\n")

	for i := 0; i < frames; i++ {
		// Frame type 0 (4.75 kbit/s) with the quality bit set; 12
		// payload bytes follow the header.
		buf.WriteByte(0x04)
		buf.Write(make([]byte, 12))
	}

	return buf.Bytes()
}

func TestProbeDuration_AMR(t *testing.T) {
	// 50 frames of 20ms each.
	path := writeFixture(t, "call.amr", amrFixture(50))

	assert.Equal(t, int64(1000), ProbeDuration(path))
}

func TestProbeDuration_AMRBadMagic(t *testing.T) {
	path := writeFixture(t, "call.amr", []byte("not an amr file"))

	assert.Equal(t, int64(0), ProbeDuration(path))
}

// mp4Fixture wraps an mvhd box of the given version inside moov,
// preceded by a minimal ftyp.
func mp4Fixture(version byte, timescale uint32, duration uint64) []byte {
	var mvhd bytes.Buffer

	mvhd.WriteByte(version)
	mvhd.Write([]byte{0, 0, 0}) // flags

	if version == 1 {
		binary.Write(&mvhd, binary.BigEndian, uint64(0)) // creation
		binary.Write(&mvhd, binary.BigEndian, uint64(0)) // modification
		binary.Write(&mvhd, binary.BigEndian, timescale)
		binary.Write(&mvhd, binary.BigEndian, duration)
	} else {
		binary.Write(&mvhd, binary.BigEndian, uint32(0))
		binary.Write(&mvhd, binary.BigEndian, uint32(0))
		binary.Write(&mvhd, binary.BigEndian, timescale)
		binary.Write(&mvhd, binary.BigEndian, uint32(duration))
	}

	var buf bytes.Buffer

	buf.Write([]byte{0, 0, 0, 16})
	buf.WriteString("ftyp")
	buf.WriteString("M4A ")
	buf.Write([]byte{0, 0, 2, 0})

	binary.Write(&buf, binary.BigEndian, uint32(8+8+mvhd.Len()))
	buf.WriteString("moov")
	binary.Write(&buf, binary.BigEndian, uint32(8+mvhd.Len()))
	buf.WriteString("mvhd")
	buf.Write(mvhd.Bytes())

	return buf.Bytes()
}

func TestProbeDuration_M4A(t *testing.T) {
	path := writeFixture(t, "call.m4a", mp4Fixture(0, 1000, 3500))

	assert.Equal(t, int64(3500), ProbeDuration(path))
}

func TestProbeDuration_M4AVersion1(t *testing.T) {
	path := writeFixture(t, "call.m4a", mp4Fixture(1, 600, 1200))

	assert.Equal(t, int64(2000), ProbeDuration(path))
}

func TestProbeDuration_3GPSharesContainer(t *testing.T) {
	path := writeFixture(t, "call.3gp", mp4Fixture(0, 1000, 1500))

	assert.Equal(t, int64(1500), ProbeDuration(path))
}

func TestProbeDuration_Garbage(t *testing.T) {
	for _, name := range []string{"x.wav", "x.mp3", "x.m4a", "x.amr", "x.aac"} {
		path := writeFixture(t, name, []byte("garbage that is no audio"))

		assert.Equal(t, int64(0), ProbeDuration(path), name)
	}
}

func TestProbeDuration_MissingFile(t *testing.T) {
	assert.Equal(t, int64(0), ProbeDuration(filepath.Join(t.TempDir(), "absent.mp3")))
}

func TestProbeDuration_UnknownExtension(t *testing.T) {
	path := writeFixture(t, "call.ogg", []byte("whatever"))

	assert.Equal(t, int64(0), ProbeDuration(path))
}
