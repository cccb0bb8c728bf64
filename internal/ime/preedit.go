package ime

// Compose builds the preedit string shown to the client: the engine buffer
// with the live bopomofo spelling inserted at the cursor. cursor counts code
// points; begin and end are byte offsets of the spelling in text, which is
// what the input-method protocol expects.
func Compose(buffer, bopomofo string, cursor int) (text string, begin, end int) {
	at := byteOffset(buffer, cursor)
	text = buffer[:at] + bopomofo + buffer[at:]
	return text, at, at + len(bopomofo)
}

// byteOffset walks s one UTF-8 sequence at a time, using the count of
// leading one bits of each lead byte as the sequence length, until n code
// points are consumed. The result never exceeds len(s).
func byteOffset(s string, n int) int {
	at := 0
	for i := 0; i < n && at < len(s); i++ {
		lead := s[at]
		if lead&0x80 == 0 {
			at++
			continue
		}
		for lead&0x80 != 0 {
			lead <<= 1
			at++
		}
	}
	return min(at, len(s))
}

// preedit is a composed preedit ready to publish.
type preedit struct {
	text       string
	begin, end int
}

func composeFrom(e Engine) preedit {
	text, begin, end := Compose(e.Buffer(), e.Bopomofo(), e.Cursor())
	return preedit{text: text, begin: begin, end: end}
}
