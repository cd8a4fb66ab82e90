// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the algorithm used for a frame. Tags are
// the first byte of every frame. These values are protocol constants:
// changing them breaks payloads already handed to running targets.
type CompressionTag uint8

const (
	// CompressionNone marks an uncompressed frame. [Compress] falls
	// back to it when the compressed body would not be smaller, which
	// is common for payloads of a few hundred bytes.
	CompressionNone CompressionTag = 0

	// CompressionZstd is zstd at the default level. Best ratio on the
	// small, repetitive CBOR envelopes that make up a payload.
	CompressionZstd CompressionTag = 1

	// CompressionLZ4 is LZ4 block compression. Faster, lower ratio.
	CompressionLZ4 CompressionTag = 2
)

// DefaultCompression is the tag used by [Serialize] when compression
// is requested.
const DefaultCompression = CompressionZstd

// maxFrameSize bounds the uncompressed length a frame may claim. A
// payload is limited to a kilobyte of base64 anyway; the bound only
// exists so a corrupt length prefix cannot trigger a huge allocation.
const maxFrameSize = 16 << 20

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a compression tag from its string
// representation.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// zstdEncoder and zstdDecoder are reused across calls. Both are safe
// for concurrent use through EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		// Payload frames are tiny; the checksum costs 4 bytes of
		// transport budget and the frame length is verified anyway.
		zstd.WithEncoderCRC(false),
	)
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxFrameSize))
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible is returned by the per-algorithm compressors when
// the output would not be smaller than the input.
var errIncompressible = errors.New("data is incompressible")

// Compress produces a frame: [tag][uvarint uncompressed length][body].
// If the requested algorithm does not shrink the data, the frame is
// written with CompressionNone instead, so callers never pay for
// compression that does not help.
func Compress(data []byte, tag CompressionTag) ([]byte, error) {
	var body []byte
	var err error

	switch tag {
	case CompressionNone:
		body = data
	case CompressionZstd:
		body, err = compressZstd(data)
	case CompressionLZ4:
		body, err = compressLZ4(data)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
	if errors.Is(err, errIncompressible) {
		tag, body, err = CompressionNone, data, nil
	}
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, 1+binary.MaxVarintLen64+len(body))
	frame = append(frame, byte(tag))
	frame = binary.AppendUvarint(frame, uint64(len(data)))
	frame = append(frame, body...)
	return frame, nil
}

// Decompress reverses [Compress]. The recorded length is verified
// against the decompressed output.
func Decompress(frame []byte) ([]byte, error) {
	tag, body, size, err := parseFrame(frame)
	if err != nil {
		return nil, err
	}

	switch tag {
	case CompressionNone:
		if len(body) != size {
			return nil, fmt.Errorf("uncompressed frame: body is %d bytes, header says %d", len(body), size)
		}
		return body, nil
	case CompressionZstd:
		return decompressZstd(body, size)
	case CompressionLZ4:
		return decompressLZ4(body, size)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// FrameTag returns the compression tag recorded in a frame header.
func FrameTag(frame []byte) (CompressionTag, error) {
	tag, _, _, err := parseFrame(frame)
	return tag, err
}

func parseFrame(frame []byte) (CompressionTag, []byte, int, error) {
	if len(frame) < 2 {
		return 0, nil, 0, fmt.Errorf("compression frame too short (%d bytes)", len(frame))
	}
	tag := CompressionTag(frame[0])
	size, read := binary.Uvarint(frame[1:])
	if read <= 0 {
		return 0, nil, 0, errors.New("compression frame has a malformed length prefix")
	}
	if size > maxFrameSize {
		return 0, nil, 0, fmt.Errorf("compression frame claims %d bytes (max %d)", size, maxFrameSize)
	}
	return tag, frame[1+read:], int(size), nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}
