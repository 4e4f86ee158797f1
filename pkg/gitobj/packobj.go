package gitobj

import (
	"bytes"
	"fmt"
)

// Pack entry type codes, as stored in pack object headers.
const (
	packTypeCommit   = 1
	packTypeTree     = 2
	packTypeBlob     = 3
	packTypeTag      = 4
	packTypeOfsDelta = 6
	packTypeRefDelta = 7
)

// DecodePackObject reads the object stored at offset in a pack file.
// The header is a variable-length encoding: bits 4-6 of the first byte are
// the type, its low 4 bits the size LSBs, and each continuation byte (high
// bit set) contributes 7 more size bits. The remainder is a zlib stream,
// truncated to the declared size. Delta entries return ErrDeltaObject.
func DecodePackObject(pack []byte, offset uint32) (*GitObject, error) {
	if int(offset) >= len(pack) {
		return nil, fmt.Errorf("pack object: offset %d beyond pack size %d", offset, len(pack))
	}
	rest := pack[offset:]

	first := rest[0]
	typeCode := (first >> 4) & 0x7
	size := uint64(first & 0x0f)
	shift := uint(4)
	i := 1
	for first&0x80 != 0 {
		if i >= len(rest) {
			return nil, fmt.Errorf("pack object: truncated header at offset %d", offset)
		}
		first = rest[i]
		size |= uint64(first&0x7f) << shift
		shift += 7
		i++
	}

	var objType ObjectType
	switch typeCode {
	case packTypeCommit:
		objType = TypeCommit
	case packTypeTree:
		objType = TypeTree
	case packTypeBlob:
		objType = TypeBlob
	case packTypeTag:
		objType = TypeTag
	case packTypeOfsDelta, packTypeRefDelta:
		return nil, fmt.Errorf("%w: type %d at offset %d", ErrDeltaObject, typeCode, offset)
	default:
		return nil, fmt.Errorf("pack object: unknown type %d at offset %d", typeCode, offset)
	}

	content, err := Inflate(rest[i:])
	if err != nil {
		return nil, fmt.Errorf("pack object at offset %d: %w", offset, err)
	}
	if uint64(len(content)) < size {
		return nil, fmt.Errorf("pack object at offset %d: short payload (want %d, got %d)", offset, size, len(content))
	}
	return &GitObject{Type: objType, Content: content[:size]}, nil
}

// EncodePackObject appends one non-delta pack entry to buf and returns the
// entry's offset. Fixture-side counterpart of DecodePackObject.
func EncodePackObject(buf *bytes.Buffer, objType ObjectType, content []byte) (uint32, error) {
	var typeCode byte
	switch objType {
	case TypeCommit:
		typeCode = packTypeCommit
	case TypeTree:
		typeCode = packTypeTree
	case TypeBlob:
		typeCode = packTypeBlob
	case TypeTag:
		typeCode = packTypeTag
	default:
		return 0, fmt.Errorf("pack object: unknown type %q", objType)
	}

	offset := uint32(buf.Len())
	size := uint64(len(content))

	b := byte(typeCode<<4) | byte(size&0x0f)
	size >>= 4
	for size > 0 {
		buf.WriteByte(b | 0x80)
		b = byte(size & 0x7f)
		size >>= 7
	}
	buf.WriteByte(b)
	buf.Write(Deflate(content))
	return offset, nil
}
