// Package framing implements the wire framing of the streaming API.
//
// A frame is a ULEB128 length header followed by the payload, zero padded so the
// whole frame is never shorter than MinFrameSize bytes:
//
//	frame   := header payload padding
//	header  := ULEB128(len(payload))
//	padding := 0x00 * max(0, 4 - len(header) - len(payload))
package framing

// MinFrameSize is the floor on the encoded size of any frame.
const MinFrameSize = 4

// EncodeFrame returns payload framed for the wire.
func EncodeFrame(payload []byte) []byte {
	return AppendFrame(make([]byte, 0, FrameLen(len(payload))), payload)
}

// AppendFrame appends the framed payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	headerLen := UvarintLen(uint64(len(payload)))
	dst = AppendUvarint(dst, uint64(len(payload)))
	dst = append(dst, payload...)
	for pad := MinFrameSize - headerLen - len(payload); pad > 0; pad-- {
		dst = append(dst, 0)
	}
	return dst
}

// FrameLen returns the encoded size of a frame carrying payloadLen bytes.
func FrameLen(payloadLen int) int {
	return max(UvarintLen(uint64(payloadLen))+payloadLen, MinFrameSize)
}

// DecodeAll extracts every complete frame from buf. It returns the payloads in wire
// order and the unconsumed tail, which the caller keeps and prepends to the next read.
// Payloads are copied out of buf.
func DecodeAll(buf []byte) ([][]byte, []byte) {
	var payloads [][]byte
	for len(buf) >= MinFrameSize {
		payloadLen, headerLen, err := DecodeVarint(buf)
		if err != nil {
			// incomplete header: wait for more bytes. An overflowing header can never
			// complete and is left in the remainder for the caller to notice.
			break
		}
		if payloadLen > uint64(len(buf)) {
			break
		}
		frameSize := max(int(payloadLen)+headerLen, MinFrameSize)
		if len(buf) < frameSize {
			break
		}
		payload := make([]byte, payloadLen)
		copy(payload, buf[headerLen:headerLen+int(payloadLen)])
		payloads = append(payloads, payload)
		buf = buf[frameSize:]
	}
	return payloads, buf
}
