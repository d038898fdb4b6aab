package echo

// Class categorizes a received byte.
type Class byte

// Byte classes, in evaluation priority.
const (
	ClassDrop Class = iota
	ClassErase
	ClassAlnum
	ClassSymbol
)

// Control codes with special meaning.
const (
	Backspace byte = 0x08
	Delete    byte = 0x7f
	Space     byte = 0x20
)

const (
	symbols  = " !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	controls = "\n\r\t"
)

var classes [256]Class

func init() {
	for b := '0'; b <= '9'; b++ {
		classes[b] = ClassAlnum
	}
	for b := 'A'; b <= 'Z'; b++ {
		classes[b] = ClassAlnum
		classes[b+'a'-'A'] = ClassAlnum
	}
	for i := 0; i < len(symbols); i++ {
		classes[symbols[i]] = ClassSymbol
	}
	for i := 0; i < len(controls); i++ {
		classes[controls[i]] = ClassSymbol
	}
	classes[Backspace] = ClassErase
	classes[Delete] = ClassErase
}

// Classify returns the class of b.
func Classify(b byte) Class {
	return classes[b]
}

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ClassErase:
		return "erase"
	case ClassAlnum:
		return "alnum"
	case ClassSymbol:
		return "symbol"
	default:
		return "drop"
	}
}
