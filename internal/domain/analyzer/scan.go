package analyzer

type lexState int

const (
	lexCode lexState = iota
	lexString
	lexBlockComment
)

// walk calls fn with the offset of every code byte of line, skipping string
// literal contents, quotes and block comments, and stopping at a line
// comment. It returns the offset where the line comment starts, or
// len(line).
func walk(line string, fn func(i int)) int {
	state := lexCode
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case lexString:
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				state = lexCode
			}
		case lexBlockComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				i++
				state = lexCode
			}
		default:
			switch {
			case c == '"' || c == '\'' || c == '`':
				state = lexString
				quote = c
			case c == '/' && i+1 < len(line) && line[i+1] == '/':
				return i
			case c == '/' && i+1 < len(line) && line[i+1] == '*':
				i++
				state = lexBlockComment
			default:
				if fn != nil {
					fn(i)
				}
			}
		}
	}
	return len(line)
}

// braceDelta is the net count of { minus } outside strings and comments
func braceDelta(line string) int {
	delta := 0
	walk(line, func(i int) {
		switch line[i] {
		case '{':
			delta++
		case '}':
			delta--
		}
	})
	return delta
}

// codeOnly blanks string contents and block comments and drops a trailing
// line comment, so rules only ever see code
func codeOnly(line string) string {
	buf := []byte(line)
	for i := range buf {
		buf[i] = ' '
	}
	end := walk(line, func(i int) {
		buf[i] = line[i]
	})
	return string(buf[:end])
}

// stripComment removes a trailing line comment
func stripComment(line string) string {
	return line[:walk(line, nil)]
}
