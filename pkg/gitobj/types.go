// Package gitobj implements Git's on-disk object formats: loose object
// envelopes, pack index v2 files, pack object headers, and the commit and
// tree object encodings. It is pure parsing/encoding; all I/O lives in the
// callers.
package gitobj

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
)

// ObjectID is a 40-character lowercase hex SHA-1.
type ObjectID string

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeCommit ObjectType = "commit"
	TypeTree   ObjectType = "tree"
	TypeBlob   ObjectType = "blob"
	TypeTag    ObjectType = "tag"
)

var (
	// ErrObjectNotFound reports an oid absent from both the loose layout
	// and every readable pack.
	ErrObjectNotFound = errors.New("gitobj: object not found")

	// ErrCorruptPackIndex reports a pack index with a bad magic, version
	// or layout. Lookups skip such packs rather than failing outright.
	ErrCorruptPackIndex = errors.New("gitobj: corrupt pack index")

	// ErrLargeOffset reports a pack index entry using the 8-byte offset
	// extension, which this reader does not support.
	ErrLargeOffset = errors.New("gitobj: 8-byte pack offsets not supported")

	// ErrDeltaObject reports an ofs_delta or ref_delta pack entry, which
	// this reader does not resolve. Callers fall back to the embedded
	// runtime for repositories that need it.
	ErrDeltaObject = errors.New("gitobj: delta pack objects not supported")
)

// GitObject is one decoded object. Content is the raw payload without the
// "<type> <size>\0" envelope.
type GitObject struct {
	Type    ObjectType
	Content []byte
}

// ParseObjectID validates a 40-char lowercase hex string.
func ParseObjectID(s string) (ObjectID, error) {
	if len(s) != 40 {
		return "", fmt.Errorf("object id must be 40 hex chars, got %d", len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid object id %q", s)
		}
	}
	return ObjectID(s), nil
}

// IsObjectID reports whether s is a well-formed oid.
func IsObjectID(s string) bool {
	_, err := ParseObjectID(s)
	return err == nil
}

func oidToBytes(oid ObjectID) ([]byte, error) {
	if len(oid) != 40 {
		return nil, fmt.Errorf("object id must be 40 hex chars, got %d", len(oid))
	}
	raw, err := hex.DecodeString(string(oid))
	if err != nil {
		return nil, fmt.Errorf("invalid object id %q: %w", oid, err)
	}
	return raw, nil
}

func oidFromBytes(raw []byte) ObjectID {
	return ObjectID(hex.EncodeToString(raw))
}

// HashObject computes the oid of an object: SHA-1 over the enveloped form
// "<type> <size>\0<content>".
func HashObject(objType ObjectType, content []byte) ObjectID {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", objType, len(content))
	h.Write(content)
	return oidFromBytes(h.Sum(nil))
}
