package gitobj

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// DecodeLoose inflates a loose object file and splits its envelope:
// "<type> <size>\0<content>". The declared size must match the content.
func DecodeLoose(data []byte) (*GitObject, error) {
	raw, err := Inflate(data)
	if err != nil {
		return nil, fmt.Errorf("loose object: %w", err)
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return nil, fmt.Errorf("loose object: invalid format (no NUL)")
	}
	header := string(raw[:nul])
	content := raw[nul+1:]

	typeStr, sizeStr, ok := strings.Cut(header, " ")
	if !ok {
		return nil, fmt.Errorf("loose object: invalid header %q", header)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("loose object: invalid size %q: %w", sizeStr, err)
	}
	if len(content) != size {
		return nil, fmt.Errorf("loose object: size mismatch (header=%d, actual=%d)", size, len(content))
	}

	switch ObjectType(typeStr) {
	case TypeCommit, TypeTree, TypeBlob, TypeTag:
	default:
		return nil, fmt.Errorf("loose object: unknown type %q", typeStr)
	}

	return &GitObject{Type: ObjectType(typeStr), Content: content}, nil
}

// EncodeLoose produces the zlib-compressed loose form of an object.
func EncodeLoose(objType ObjectType, content []byte) []byte {
	envelope := fmt.Sprintf("%s %d\x00", objType, len(content))
	return Deflate(append([]byte(envelope), content...))
}

// LoosePath returns the repository-relative path of a loose object:
// objects/<first 2 hex>/<remaining 38>.
func LoosePath(oid ObjectID) string {
	return "objects/" + string(oid[:2]) + "/" + string(oid[2:])
}
