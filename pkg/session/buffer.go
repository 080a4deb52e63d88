package session

import (
	"github.com/smarkets/smkstream/pkg/framing"
	"github.com/valyala/bytebufferpool"
)

// outBuffer holds framed bytes not yet accepted by the transport and remembers
// where each frame ends so confirmed frames can be counted.
type outBuffer struct {
	buf    *bytebufferpool.ByteBuffer
	frames []int // frame lengths, oldest first
	head   int   // bytes of frames[0] already written
}

func newOutBuffer() *outBuffer {
	return &outBuffer{buf: bytebufferpool.Get()}
}

func (o *outBuffer) appendFrame(payload []byte) int {
	before := len(o.buf.B)
	o.buf.B = framing.AppendFrame(o.buf.B, payload)
	n := len(o.buf.B) - before
	o.frames = append(o.frames, n)
	return n
}

// consume drops n written bytes and returns how many frames finished.
func (o *outBuffer) consume(n int) int {
	b := o.buf.B
	o.buf.B = b[:copy(b, b[n:])]
	o.head += n
	done := 0
	for len(o.frames) > 0 && o.head >= o.frames[0] {
		o.head -= o.frames[0]
		o.frames = o.frames[1:]
		done++
	}
	return done
}

func (o *outBuffer) bytes() []byte {
	return o.buf.B
}

func (o *outBuffer) len() int {
	return o.buf.Len()
}

func (o *outBuffer) frameCount() int {
	return len(o.frames)
}

func (o *outBuffer) reset() {
	o.buf.Reset()
	o.frames = o.frames[:0]
	o.head = 0
}

// inBuffer accumulates socket bytes until whole frames can be cut from them.
type inBuffer struct {
	buf *bytebufferpool.ByteBuffer
}

func newInBuffer() *inBuffer {
	return &inBuffer{buf: bytebufferpool.Get()}
}

func (i *inBuffer) write(data []byte) {
	i.buf.B = append(i.buf.B, data...)
}

// decode cuts every complete frame out of the buffer and keeps the tail.
func (i *inBuffer) decode() ([][]byte, []byte) {
	payloads, rest := framing.DecodeAll(i.buf.B)
	i.buf.B = i.buf.B[:copy(i.buf.B, rest)]
	return payloads, i.buf.B
}

func (i *inBuffer) len() int {
	return i.buf.Len()
}

func (i *inBuffer) reset() {
	i.buf.Reset()
}

func releaseBuffers(o *outBuffer, i *inBuffer) {
	if o.buf != nil {
		bytebufferpool.Put(o.buf)
		o.buf = nil
		o.frames = nil
	}
	if i.buf != nil {
		bytebufferpool.Put(i.buf)
		i.buf = nil
	}
}
