package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

// Shape classifies the outcome of reading a snapshot blob.
type Shape string

const (
	// ShapeEmpty means no blob existed; this is a first install.
	ShapeEmpty Shape = "empty"

	// ShapeCurrent is the seven-collection shape.
	ShapeCurrent Shape = "current"

	// ShapeLegacy is the three-collection shape.
	ShapeLegacy Shape = "legacy"

	// ShapeFault means the blob matched no known shape.
	ShapeFault Shape = "fault"
)

// Envelope versions. The header version selects the payload shape.
const (
	VersionLegacy  = 1
	VersionCurrent = 2
)

// Magic bytes identify an enveloped snapshot.
var magicBytes = []byte("TUAMSNAP")

const (
	checksumSize = sha256.Size
	lengthSize   = 4
)

// Envelope errors.
var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrTruncated        = errors.New("snapshot: truncated envelope")
	ErrUnknownVersion   = errors.New("snapshot: unknown envelope version")
	ErrUnknownShape     = errors.New("snapshot: payload matches no known shape")
)

// Header is the plaintext metadata block of an enveloped snapshot.
type Header struct {
	Version   int    `json:"version"`
	CreatedAt int64  `json:"created_at"`
	Shape     Shape  `json:"shape"`
	Counts    Counts `json:"counts"`
	Encrypted bool   `json:"encrypted"`
}

// Codec converts states to and from snapshot blobs.
//
// Layout:
//
//	[magic:8 "TUAMSNAP"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][Data:DataLen]   (JSON state, or sealed bytes)
//	[checksum:32 SHA-256 of all bytes above]
type Codec struct {
	cipher *Cipher
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithCipher enables payload encryption. A nil cipher disables it.
func WithCipher(c *Cipher) CodecOption {
	return func(codec *Codec) {
		codec.cipher = c
	}
}

// WithNow overrides the header timestamp source.
func WithNow(now func() time.Time) CodecOption {
	return func(codec *Codec) {
		codec.now = now
	}
}

// NewCodec creates a codec.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode serializes s in the current shape inside an envelope.
// Any failure is reported as domain.ErrSaveFault.
func (c *Codec) Encode(s *State) ([]byte, error) {
	if s == nil {
		s = &State{}
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return nil, domain.ErrSaveFault.WithCause(fmt.Errorf("snapshot: marshal state: %w", err))
	}

	hdr := Header{
		Version:   VersionCurrent,
		CreatedAt: c.now().UnixMilli(),
		Shape:     ShapeCurrent,
		Counts:    s.Count(),
		Encrypted: c.cipher != nil,
	}

	blob, err := c.seal(hdr, payload)
	if err != nil {
		return nil, domain.ErrSaveFault.WithCause(err)
	}
	return blob, nil
}

// Decode reconstructs a state from blob.
//
// Enveloped blobs are checked (magic, checksum), decrypted when needed and
// dispatched on the header version. Blobs without an envelope are treated as
// bare JSON payloads and sniffed: current shape first, then legacy. Anything
// else yields domain.ErrRestoreFault and ShapeFault.
func (c *Codec) Decode(blob []byte) (*State, Shape, error) {
	state, shape, err := c.decode(blob)
	if err != nil {
		return nil, ShapeFault, domain.ErrRestoreFault.WithCause(err)
	}
	return state, shape, nil
}

func (c *Codec) decode(blob []byte) (*State, Shape, error) {
	if !IsEnveloped(blob) {
		return decodeBare(blob)
	}

	hdr, data, err := open(blob)
	if err != nil {
		return nil, ShapeFault, err
	}

	if hdr.Encrypted {
		if c.cipher == nil {
			return nil, ShapeFault, ErrMissingKey
		}
		if data, err = c.cipher.Open(data, magicBytes); err != nil {
			return nil, ShapeFault, err
		}
	}

	switch hdr.Version {
	case VersionCurrent:
		var s State
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, ShapeFault, fmt.Errorf("snapshot: decode current payload: %w", err)
		}
		return &s, ShapeCurrent, nil
	case VersionLegacy:
		var l legacyState
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, ShapeFault, fmt.Errorf("snapshot: decode legacy payload: %w", err)
		}
		return l.upgrade(), ShapeLegacy, nil
	default:
		return nil, ShapeFault, fmt.Errorf("%w: %d", ErrUnknownVersion, hdr.Version)
	}
}

// decodeBare sniffs a payload written without an envelope.
func decodeBare(data []byte) (*State, Shape, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, ShapeFault, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}

	if validateCurrent(doc) == nil {
		var s State
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, ShapeCurrent, nil
		}
	}

	if err := validateLegacy(doc); err != nil {
		return nil, ShapeFault, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}
	var l legacyState
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, ShapeFault, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}
	return l.upgrade(), ShapeLegacy, nil
}

// ReadHeader verifies the envelope of blob and returns its header without
// decoding the payload.
func ReadHeader(blob []byte) (*Header, error) {
	hdr, _, err := open(blob)
	if err != nil {
		return nil, err
	}
	return hdr, nil
}

// IsEnveloped reports whether blob starts with the snapshot magic.
func IsEnveloped(blob []byte) bool {
	return bytes.HasPrefix(blob, magicBytes)
}

// EncodeLegacy writes a state in the legacy three-collection shape. Only the
// users, inbox and sent collections are kept. It exists for compatibility
// tooling and tests; servers always write the current shape.
func (c *Codec) EncodeLegacy(s *State) ([]byte, error) {
	l := legacyState{Users: s.Users, Inbox: s.Inbox, Sent: s.Sent}
	payload, err := json.Marshal(&l)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal legacy state: %w", err)
	}
	counts := l.upgrade().Count()
	return c.seal(Header{
		Version:   VersionLegacy,
		CreatedAt: c.now().UnixMilli(),
		Shape:     ShapeLegacy,
		Counts:    counts,
		Encrypted: c.cipher != nil,
	}, payload)
}

func (c *Codec) seal(hdr Header, payload []byte) ([]byte, error) {
	if c.cipher != nil {
		sealed, err := c.cipher.Seal(payload, magicBytes)
		if err != nil {
			return nil, err
		}
		payload = sealed
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(magicBytes) + 2*lengthSize + len(hdrJSON) + len(payload) + checksumSize)
	buf.Write(magicBytes)
	writeChunk(&buf, hdrJSON)
	writeChunk(&buf, payload)

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

func writeChunk(buf *bytes.Buffer, chunk []byte) {
	var n [lengthSize]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(chunk)))
	buf.Write(n[:])
	buf.Write(chunk)
}

// open verifies magic and checksum and splits the envelope.
func open(blob []byte) (*Header, []byte, error) {
	if len(blob) < len(magicBytes)+2*lengthSize+checksumSize {
		if !IsEnveloped(blob) {
			return nil, nil, ErrInvalidMagic
		}
		return nil, nil, ErrTruncated
	}
	if !IsEnveloped(blob) {
		return nil, nil, ErrInvalidMagic
	}

	body := blob[:len(blob)-checksumSize]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], blob[len(body):]) {
		return nil, nil, ErrChecksumMismatch
	}

	rest := body[len(magicBytes):]
	hdrJSON, rest, err := readChunk(rest)
	if err != nil {
		return nil, nil, err
	}
	if len(hdrJSON) == 0 {
		return nil, nil, fmt.Errorf("snapshot: empty header")
	}
	data, rest, err := readChunk(rest)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("snapshot: %d trailing bytes before checksum", len(rest))
	}

	var hdr Header
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}
	return &hdr, data, nil
}

func readChunk(b []byte) (chunk, rest []byte, err error) {
	if len(b) < lengthSize {
		return nil, nil, ErrTruncated
	}
	n := binary.BigEndian.Uint32(b[:lengthSize])
	b = b[lengthSize:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, ErrTruncated
	}
	return b[:n], b[n:], nil
}
