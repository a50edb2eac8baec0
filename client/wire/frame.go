// Package wire implements the length-prefixed BSON framing used between an
// embedded client and the intermediary service: each frame's first 4 bytes,
// little-endian, give the total byte length of the frame including those
// 4 bytes, and every frame ends with a trailing null byte at offset
// length-1 — BSON's own document-terminator convention reused as the
// frame's sanity check.
package wire

import (
	"encoding/binary"
	"io"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/client/apierr"
)

const (
	// LengthPrefixSize is the size in bytes of the leading length field.
	LengthPrefixSize = 4
	// MinFrameSize is the number of bytes FrameSize needs before it parses
	// the prefix, and the smallest frame Validate accepts: a 4-byte prefix
	// plus at least one content byte.
	MinFrameSize = 5
	// MaxFrameSize is the hard ceiling enforced on any single frame.
	MaxFrameSize = 64 * 1024 * 1024
)

// FrameSize is a pure function: given the first n bytes of an arriving
// frame, it returns the total expected frame length (parsed from the first
// 4 bytes). When fewer than MinFrameSize bytes are available it returns n
// unchanged, signaling "need more data" to the caller without guessing.
// A parsed length beyond MaxFrameSize is capped at MaxFrameSize — the
// reassembler will stop reading at the cap and let the validator reject
// the truncated frame, forcing the caller to reconnect.
func FrameSize(prefix []byte) int {
	if len(prefix) < MinFrameSize {
		return len(prefix)
	}
	n := int(binary.LittleEndian.Uint32(prefix[:LengthPrefixSize]))
	if n > MaxFrameSize {
		return MaxFrameSize
	}
	return n
}

// Encode marshals doc to BSON and writes it to w verbatim: BSON documents
// are already self-length-prefixed (4-byte little-endian length header,
// trailing null), so no additional framing is added.
func Encode(w io.Writer, doc any) (int, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return 0, apierr.Invalid("encode frame: " + err.Error())
	}
	n, err := w.Write(data)
	if err != nil {
		return n, apierr.Command("write frame", err)
	}
	return n, nil
}

// Validate checks that buf is a syntactically well-formed, fully-framed
// BSON document: long enough, length-prefix consistent with len(buf), and
// terminated by the trailing null byte BSON requires.
func Validate(buf []byte) error {
	if len(buf) < MinFrameSize {
		return apierr.Data("frame too short", nil)
	}
	n := int(binary.LittleEndian.Uint32(buf[:LengthPrefixSize]))
	if n != len(buf) {
		return apierr.Data("frame length mismatch", nil)
	}
	if buf[len(buf)-1] != 0x00 {
		return apierr.Data("frame missing trailing null", nil)
	}
	var probe bson.Raw = buf
	if err := probe.Validate(); err != nil {
		return apierr.Data("frame is not valid bson", err)
	}
	return nil
}

// Decode validates buf and unmarshals it into a bson.Raw for downstream
// typed unmarshaling.
func Decode(buf []byte) (bson.Raw, error) {
	if err := Validate(buf); err != nil {
		return nil, err
	}
	return bson.Raw(buf), nil
}

// Reassemble reads from r until a complete, size-bounded frame has
// arrived, using bufSizeHint as the initial chunk size for each Read. It
// returns the validated frame bytes, or an error if the stream closed
// early or the frame failed validation.
func Reassemble(r io.Reader, bufSizeHint int) ([]byte, error) {
	if bufSizeHint <= 0 {
		bufSizeHint = 4096
	}
	buf := make([]byte, 0, bufSizeHint)
	chunk := make([]byte, bufSizeHint)

	want := MinFrameSize
	for len(buf) < want {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if len(buf) >= MinFrameSize {
				want = FrameSize(buf)
			}
		}
		if err != nil {
			if err == io.EOF && len(buf) >= want && want > 0 {
				break
			}
			return nil, apierr.Command("read frame", err)
		}
	}

	if len(buf) > want {
		buf = buf[:want]
	}

	if err := Validate(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
