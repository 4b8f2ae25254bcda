package mask

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// The tracking server ships masks as zlib-compressed run-length data:
//
//	[startValue:1][height:2 LE][width:2 LE][runCount:4 LE][runs: u16 LE ...]
//
// Runs alternate between transparent and opaque starting at startValue; a
// run longer than 65535 is split with a zero-length run of the opposite
// value in between.

// ErrMalformedRLE reports undecodable run-length payloads.
var ErrMalformedRLE = errors.New("malformed rle mask")

const rleHeaderLen = 9

// EncodeRLE serializes the mask. Coverage is binarized at 127.
func EncodeRLE(m *Mask) ([]byte, error) {
	flat := make([]byte, len(m.Pix))
	for i, v := range m.Pix {
		if v > 127 {
			flat[i] = 1
		}
	}

	var runs []uint32
	if len(flat) > 0 {
		cur := flat[0]
		length := uint32(0)
		for _, v := range flat {
			if v == cur {
				length++
				continue
			}
			runs = append(runs, length)
			cur = v
			length = 1
		}
		runs = append(runs, length)
	}

	var payload bytes.Buffer
	start := byte(0)
	if len(flat) > 0 {
		start = flat[0]
	}
	payload.WriteByte(start)
	var u16 [2]byte
	var u32 [4]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(m.Height))
	payload.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], uint16(m.Width))
	payload.Write(u16[:])

	// Count runs after splitting the long ones.
	total := 0
	for _, r := range runs {
		total++
		for r > 65535 {
			total += 2
			r -= 65535
		}
	}
	binary.LittleEndian.PutUint32(u32[:], uint32(total))
	payload.Write(u32[:])

	for _, r := range runs {
		for r > 65535 {
			binary.LittleEndian.PutUint16(u16[:], 65535)
			payload.Write(u16[:])
			binary.LittleEndian.PutUint16(u16[:], 0)
			payload.Write(u16[:])
			r -= 65535
		}
		binary.LittleEndian.PutUint16(u16[:], uint16(r))
		payload.Write(u16[:])
	}

	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(payload.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecodeRLE reconstructs a mask from run-length bytes.
func DecodeRLE(data []byte) (*Mask, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRLE, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRLE, err)
	}
	if len(raw) < rleHeaderLen {
		return nil, fmt.Errorf("%w: truncated header", ErrMalformedRLE)
	}

	start := raw[0]
	height := int(binary.LittleEndian.Uint16(raw[1:3]))
	width := int(binary.LittleEndian.Uint16(raw[3:5]))
	runCount := int(binary.LittleEndian.Uint32(raw[5:9]))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty dimensions", ErrMalformedRLE)
	}

	m := New(width, height)
	cur := start
	pos := 0
	offset := rleHeaderLen
	for i := 0; i < runCount; i++ {
		if offset+2 > len(raw) {
			break
		}
		run := int(binary.LittleEndian.Uint16(raw[offset : offset+2]))
		offset += 2
		if pos+run > len(m.Pix) {
			run = len(m.Pix) - pos
		}
		if run > 0 && cur != 0 {
			for j := pos; j < pos+run; j++ {
				m.Pix[j] = 0xff
			}
		}
		pos += run
		cur = 1 - cur
	}
	return m, nil
}

// EncodeBase64 wraps EncodeRLE in standard base64 for JSON transport.
func EncodeBase64(m *Mask) (string, error) {
	raw, err := EncodeRLE(m)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(s string) (*Mask, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRLE, err)
	}
	return DecodeRLE(raw)
}
