package denm

import "fmt"

// bitWriter packs values MSB-first, the bit order PER unaligned encoding
// uses. The final partial octet is zero-padded.
type bitWriter struct {
	buf  []byte
	nbit uint // bits used in the last byte, 0..7
}

func newBitWriter() *bitWriter {
	return &bitWriter{}
}

// writeBits appends the low n bits of v, most significant first.
func (w *bitWriter) writeBits(v uint64, n uint) {
	for n > 0 {
		if w.nbit == 0 {
			w.buf = append(w.buf, 0)
		}
		free := 8 - w.nbit
		take := n
		if take > free {
			take = free
		}
		shift := n - take
		chunk := byte((v >> shift) & ((1 << take) - 1))
		w.buf[len(w.buf)-1] |= chunk << (free - take)
		w.nbit = (w.nbit + take) % 8
		n -= take
	}
}

// writeBool appends a single presence/extension bit.
func (w *bitWriter) writeBool(b bool) {
	if b {
		w.writeBits(1, 1)
	} else {
		w.writeBits(0, 1)
	}
}

func (w *bitWriter) bytes() []byte {
	return w.buf
}

// bitReader consumes values MSB-first. Running past the end of input is a
// decode failure, never a panic.
type bitReader struct {
	buf []byte
	pos uint // absolute bit position
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{buf: data}
}

// readBits returns the next n bits as an unsigned value.
func (r *bitReader) readBits(n uint) (uint64, error) {
	if r.pos+n > uint(len(r.buf))*8 {
		return 0, fmt.Errorf("%w: truncated input at bit %d", ErrDecodeFailed, r.pos)
	}
	var v uint64
	for i := uint(0); i < n; i++ {
		byteIdx := (r.pos + i) / 8
		bitIdx := 7 - (r.pos+i)%8
		v = v<<1 | uint64((r.buf[byteIdx]>>bitIdx)&1)
	}
	r.pos += n
	return v, nil
}

// readBool returns the next presence/extension bit.
func (r *bitReader) readBool() (bool, error) {
	v, err := r.readBits(1)
	return v == 1, err
}
