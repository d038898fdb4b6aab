package echo

// MaxOutputLen is the longest output of a single byte.
const MaxOutputLen = 3

// Output holds the bytes to transmit for one input byte.
type Output struct {
	buf [MaxOutputLen]byte
	n   uint8
}

var eraseSeq = Output{buf: [MaxOutputLen]byte{Backspace, Space, Backspace}, n: 3}

func single(b byte) Output {
	return Output{buf: [MaxOutputLen]byte{b}, n: 1}
}

// Len returns the number of bytes to transmit.
func (o *Output) Len() int {
	return int(o.n)
}

// Bytes returns the bytes to transmit. The slice aliases o.
func (o *Output) Bytes() []byte {
	return o.buf[:o.n]
}

// IsEmpty indicates the input byte was dropped.
func (o *Output) IsEmpty() bool {
	return o.n == 0
}
