package gitobj

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	packIndexVersion     = 2
	packIndexHeaderSize  = 8
	packIndexFanoutSize  = 256 * 4
	packIndexTrailerSize = 40 // pack checksum + index checksum, 20 bytes each

	largeOffsetBit = uint32(1) << 31
)

var packIndexMagic = [4]byte{0xff, 't', 'O', 'c'}

// PackIndex is the in-memory form of a pack index v2 file. Offsets are the
// raw 4-byte table values; entries referencing the 8-byte extension table
// keep the high bit set and fail at lookup time with ErrLargeOffset.
type PackIndex struct {
	Fanout  [256]uint32
	SHAs    []ObjectID
	Offsets []uint32
}

// PackIndexEntry is one row used by EncodePackIndex.
type PackIndexEntry struct {
	OID    ObjectID
	Offset uint64
	CRC32  uint32
}

// ParsePackIndex parses and validates a pack index v2 file. All failure
// modes wrap ErrCorruptPackIndex so callers can skip the pack.
func ParsePackIndex(data []byte) (*PackIndex, error) {
	minLen := packIndexHeaderSize + packIndexFanoutSize + packIndexTrailerSize
	if len(data) < minLen {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrCorruptPackIndex, len(data))
	}
	if !bytes.Equal(data[:4], packIndexMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic %x", ErrCorruptPackIndex, data[:4])
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != packIndexVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptPackIndex, version)
	}

	idx := &PackIndex{}
	cursor := packIndexHeaderSize
	for i := 0; i < 256; i++ {
		idx.Fanout[i] = binary.BigEndian.Uint32(data[cursor:])
		cursor += 4
	}
	n := int(idx.Fanout[255])

	// SHA table, CRC table (skipped), offset table.
	need := cursor + n*20 + n*4 + n*4 + packIndexTrailerSize
	if need > len(data) {
		return nil, fmt.Errorf("%w: truncated (%d entries, %d bytes)", ErrCorruptPackIndex, n, len(data))
	}

	idx.SHAs = make([]ObjectID, n)
	for i := 0; i < n; i++ {
		idx.SHAs[i] = oidFromBytes(data[cursor : cursor+20])
		cursor += 20
	}
	cursor += n * 4 // CRC32 table

	idx.Offsets = make([]uint32, n)
	for i := 0; i < n; i++ {
		idx.Offsets[i] = binary.BigEndian.Uint32(data[cursor:])
		cursor += 4
	}

	return idx, nil
}

// Find looks up an oid with a fanout-bounded binary search. The returned
// error is ErrLargeOffset when the entry lives in the 8-byte offset table.
func (idx *PackIndex) Find(oid ObjectID) (uint32, bool, error) {
	raw, err := oidToBytes(oid)
	if err != nil {
		return 0, false, nil
	}

	bucket := int(raw[0])
	start := uint32(0)
	if bucket > 0 {
		start = idx.Fanout[bucket-1]
	}
	end := idx.Fanout[bucket]

	lo, hi := int(start), int(end)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if idx.SHAs[mid] < oid {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= int(end) || idx.SHAs[lo] != oid {
		return 0, false, nil
	}

	offset := idx.Offsets[lo]
	if offset&largeOffsetBit != 0 {
		return 0, false, fmt.Errorf("%w: entry %s", ErrLargeOffset, oid)
	}
	return offset, true, nil
}

// EncodePackIndex writes a pack index v2 file for the given entries.
// Offsets ≥ 2^31 are emitted through the 8-byte extension table, which the
// parser preserves as raw references so the unsupported path is testable.
func EncodePackIndex(entries []PackIndexEntry, packChecksum [20]byte) ([]byte, error) {
	sorted := append([]PackIndexEntry(nil), entries...)
	for i := range sorted {
		if _, err := oidToBytes(sorted[i].OID); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OID < sorted[j].OID })

	var buf bytes.Buffer
	buf.Write(packIndexMagic[:])
	_ = binary.Write(&buf, binary.BigEndian, uint32(packIndexVersion))

	var counts [256]uint32
	for _, e := range sorted {
		raw, _ := oidToBytes(e.OID)
		counts[raw[0]]++
	}
	var total uint32
	for i := 0; i < 256; i++ {
		total += counts[i]
		_ = binary.Write(&buf, binary.BigEndian, total)
	}

	for _, e := range sorted {
		raw, _ := oidToBytes(e.OID)
		buf.Write(raw)
	}
	for _, e := range sorted {
		_ = binary.Write(&buf, binary.BigEndian, e.CRC32)
	}

	var largeOffsets []uint64
	for _, e := range sorted {
		if e.Offset < uint64(largeOffsetBit) {
			_ = binary.Write(&buf, binary.BigEndian, uint32(e.Offset))
			continue
		}
		ref := largeOffsetBit | uint32(len(largeOffsets))
		_ = binary.Write(&buf, binary.BigEndian, ref)
		largeOffsets = append(largeOffsets, e.Offset)
	}
	for _, off := range largeOffsets {
		_ = binary.Write(&buf, binary.BigEndian, off)
	}

	buf.Write(packChecksum[:])
	indexSum := sha1.Sum(buf.Bytes())
	buf.Write(indexSum[:])
	return buf.Bytes(), nil
}
