package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// ErrChecksum is returned when a wire payload does not match its checksum.
var ErrChecksum = errors.New("payload checksum mismatch")

// magic prefixes every wire payload.
var magic = [4]byte{'T', 'W', 'P', '1'}

const headerSize = len(magic) + 32

// maxBodySize bounds the decompressed JSON body.
var maxBodySize int64 = 256 << 20

// Marshal encodes p for transport: JSON compressed with LZ4, prefixed by a
// magic tag and the BLAKE3 digest of the compressed body.
func Marshal(p *Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var body bytes.Buffer
	zw := lz4.NewWriter(&body)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	sum := blake3.Sum256(body.Bytes())
	out := make([]byte, 0, headerSize+body.Len())
	out = append(out, magic[:]...)
	out = append(out, sum[:]...)
	out = append(out, body.Bytes()...)
	return out, nil
}

// Unmarshal verifies and decodes a wire payload produced by Marshal.
func Unmarshal(data []byte) (*Payload, error) {
	if len(data) < headerSize || !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	body := data[headerSize:]
	sum := blake3.Sum256(body)
	if !bytes.Equal(sum[:], data[len(magic):headerSize]) {
		return nil, ErrChecksum
	}

	raw, err := io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(body)), maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	if int64(len(raw)) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformed, maxBodySize)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrMalformed, p.Version, Version)
	}
	return &p, nil
}
