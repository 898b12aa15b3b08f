package server

import (
	"encoding/binary"
	"io"
	"math"
)

// Wire opcodes. The meta field carries the key (low 32 bits) for
// INSERT/DELETE/UPDATE, the name length for SELECT_DB, and N for
// SEARCH_N.
const (
	CmdInsert     byte = 1
	CmdSearch     byte = 2
	CmdDelete     byte = 3
	CmdSelectDB   byte = 4
	CmdUpdate     byte = 5
	CmdInsertAuto byte = 6
	CmdSearchN    byte = 7
)

const frameHeaderSize = 5

// maxDimension bounds the dimension a client may request via SELECT_DB;
// beyond this the data file allocation would be driven by untrusted
// input.
const maxDimension = 1 << 16

const (
	respOK   = '1'
	respFail = '0'
)

func cmdName(cmd byte) string {
	switch cmd {
	case CmdInsert:
		return "insert"
	case CmdSearch:
		return "search"
	case CmdDelete:
		return "delete"
	case CmdSelectDB:
		return "select_db"
	case CmdUpdate:
		return "update"
	case CmdInsertAuto:
		return "insert_auto"
	case CmdSearchN:
		return "search_n"
	default:
		return "unknown"
	}
}

// readFrame reads the 5-byte request header.
func readFrame(r io.Reader) (cmd byte, meta uint32, err error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, 0, err
	}
	return header[0], binary.LittleEndian.Uint32(header[1:]), nil
}

// readVector reads a dim*4-byte little-endian float32 payload.
func readVector(r io.Reader, dim int) ([]float32, error) {
	buf := make([]byte, dim*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// writeKeyList writes a u32 count followed by count little-endian i32
// keys (the SEARCH_N response).
func writeKeyList(w io.Writer, keys []int32) error {
	buf := make([]byte, 4+len(keys)*4)
	binary.LittleEndian.PutUint32(buf, uint32(len(keys)))
	for i, k := range keys {
		binary.LittleEndian.PutUint32(buf[4+i*4:], uint32(k))
	}
	_, err := w.Write(buf)
	return err
}
