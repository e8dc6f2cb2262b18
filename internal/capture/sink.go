package capture

import (
	"encoding/binary"
	"os"
)

const (
	sampleRate    = 16000
	channels      = 1
	bitsPerSample = 16
	headerSize    = 44
)

// wavSink writes a 16 kHz mono PCM WAV file. The header is written on
// the first frame, so a capture that received no frames leaves a
// zero-length file behind.
type wavSink struct {
	file    *os.File
	dataLen uint32
}

func newWAVSink(path string) (*wavSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &wavSink{file: file}, nil
}

func (s *wavSink) Write(p []byte) error {
	if s.dataLen == 0 && len(p) > 0 {
		if err := s.writeHeader(); err != nil {
			return err
		}
	}
	n, err := s.file.Write(p)
	s.dataLen += uint32(n)
	return err
}

// Close flushes the sink and patches the header size fields.
func (s *wavSink) Close() error {
	if s.dataLen > 0 {
		var sizes [4]byte

		binary.LittleEndian.PutUint32(sizes[:], 36+s.dataLen)
		if _, err := s.file.WriteAt(sizes[:], 4); err != nil {
			s.file.Close()
			return err
		}

		binary.LittleEndian.PutUint32(sizes[:], s.dataLen)
		if _, err := s.file.WriteAt(sizes[:], 40); err != nil {
			s.file.Close()
			return err
		}

		if err := s.file.Sync(); err != nil {
			s.file.Close()
			return err
		}
	}
	return s.file.Close()
}

func (s *wavSink) writeHeader() error {
	var h [headerSize]byte

	copy(h[0:4], "RIFF")
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(h[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(h[22:24], channels)
	binary.LittleEndian.PutUint32(h[24:28], sampleRate)
	binary.LittleEndian.PutUint32(h[28:32], sampleRate*channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(h[32:34], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(h[34:36], bitsPerSample)
	copy(h[36:40], "data")

	_, err := s.file.Write(h[:])
	return err
}
