package protocol

// Escape byte-stuffs data so neither marker pair can occur inside it.
// Every 0xAA or 0x55 is followed by a literal 0x00 on the wire.
func Escape(data []byte) []byte {
	out := make([]byte, 0, len(data)+4)
	for _, b := range data {
		out = append(out, b)
		if b == StartMark1 || b == StartMark2 {
			out = append(out, EscapeByte)
		}
	}
	return out
}

// Unescape reverses Escape. A genuine marker pair inside the body means
// the sender never escaped it; that is frame corruption, not data.
func Unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != StartMark1 && b != StartMark2 {
			out = append(out, b)
			continue
		}
		if i+1 < len(data) && data[i+1] == EscapeByte {
			out = append(out, b)
			i++
			continue
		}
		if i+1 < len(data) &&
			((b == StartMark1 && data[i+1] == StartMark2) ||
				(b == EndMark1 && data[i+1] == EndMark2)) {
			return nil, ErrFrameCorrupt
		}
		out = append(out, b)
	}
	return out, nil
}
