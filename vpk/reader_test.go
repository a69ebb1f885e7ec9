package vpk

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/vpktool/vpk/errors"
)

// buildMinimalIndex writes one file record for ext/dir/name, using
// term in place of the fixed 0xFFFF terminator, followed by the
// ext/dir/name list terminators.
func buildMinimalIndex(ext, dir, name string, term uint16) []byte {
	var buf bytes.Buffer
	writeCString(&buf, ext)
	writeCString(&buf, dir)
	writeCString(&buf, name)
	writeUint32(&buf, 0)      // crc32
	writeUint16(&buf, 0)      // inline_size
	writeUint16(&buf, 0x7FFF) // archive_index (DirIndex)
	writeUint32(&buf, 0)      // offset
	writeUint32(&buf, 0)      // size
	writeUint16(&buf, term)
	writeCString(&buf, "") // end of name list
	writeCString(&buf, "") // end of dir list
	writeCString(&buf, "") // end of ext list
	return buf.Bytes()
}

func TestParseFileRecordIllegalTerminatorOffset(t *testing.T) {
	const headerSize = V1HeaderSize
	data := buildMinimalIndex("mdl", "models", "gun", 0x1234)

	root := newDirEntry()
	err := parseIndex(bufio.NewReader(bytes.NewReader(data)), root, headerSize, headerSize)
	if err == nil {
		t.Fatalf("parseIndex: got nil error for bad terminator")
	}
	if !errors.Is(errors.IllegalTerminator, err) {
		t.Fatalf("parseIndex error = %v, want IllegalTerminator", err)
	}
	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("parseIndex error is %T, want *errors.Error", err)
	}
	// mdl\0models\0gun\0 = 4+7+4 = 15 bytes, then crc32(4)+inline(2)+
	// archive(2)+offset(4)+size(4) = 16 bytes of fixed fields before
	// the terminator, which itself occupies 2 bytes; the reported
	// offset is the terminator's last byte.
	wantOffset := int64(headerSize) + 15 + 16 + 2 - 1
	if e.Offset != wantOffset {
		t.Errorf("Offset = %d, want %d", e.Offset, wantOffset)
	}
	if e.Value != 0x1234 {
		t.Errorf("Value = %#x, want %#x", e.Value, 0x1234)
	}
}
