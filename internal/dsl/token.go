package dsl

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenLBrace
	tokenRBrace
	tokenLBracket
	tokenRBracket
	tokenColon
	tokenComma
)

// token is a single lexical unit of flow-module source. The value holds
// the decoded text for strings and the raw text for everything else.
type token struct {
	typ    tokenType
	value  string
	line   int
	column int
}

// tokenize splits flow-module source into tokens. Line comments starting
// with // run to end of line and are discarded. Positions are 1-indexed.
func tokenize(src string) ([]token, error) {
	var tokens []token
	line, col := 1, 1
	i := 0

	advance := func(n int) {
		for k := 0; k < n; k++ {
			if src[i+k] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		i += n
	}

	for i < len(src) {
		c := src[i]

		// Skip whitespace
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			advance(1)
			continue
		}

		// Skip line comments
		if c == '/' && i+1 < len(src) && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				advance(1)
			}
			continue
		}

		startLine, startCol := line, col

		// Single-character tokens
		switch c {
		case '{':
			tokens = append(tokens, token{typ: tokenLBrace, value: "{", line: startLine, column: startCol})
			advance(1)
			continue
		case '}':
			tokens = append(tokens, token{typ: tokenRBrace, value: "}", line: startLine, column: startCol})
			advance(1)
			continue
		case '[':
			tokens = append(tokens, token{typ: tokenLBracket, value: "[", line: startLine, column: startCol})
			advance(1)
			continue
		case ']':
			tokens = append(tokens, token{typ: tokenRBracket, value: "]", line: startLine, column: startCol})
			advance(1)
			continue
		case ':':
			tokens = append(tokens, token{typ: tokenColon, value: ":", line: startLine, column: startCol})
			advance(1)
			continue
		case ',':
			tokens = append(tokens, token{typ: tokenComma, value: ",", line: startLine, column: startCol})
			advance(1)
			continue
		}

		// String literals
		if c == '"' {
			advance(1)
			var sb strings.Builder
			closed := false
			for i < len(src) {
				ch := src[i]
				if ch == '\n' {
					break
				}
				if ch == '\\' {
					if i+1 >= len(src) {
						break
					}
					esc := src[i+1]
					switch esc {
					case '"':
						sb.WriteByte('"')
					case '\\':
						sb.WriteByte('\\')
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					case 'r':
						sb.WriteByte('\r')
					default:
						return nil, errorAt(line, col, "invalid escape sequence \\%c", esc)
					}
					advance(2)
					continue
				}
				if ch == '"' {
					advance(1)
					closed = true
					break
				}
				sb.WriteByte(ch)
				advance(1)
			}
			if !closed {
				return nil, errorAt(startLine, startCol, "unterminated string literal")
			}
			tokens = append(tokens, token{typ: tokenString, value: sb.String(), line: startLine, column: startCol})
			continue
		}

		// Numbers, including a leading minus
		if isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])) {
			start := i
			if c == '-' {
				advance(1)
			}
			for i < len(src) && isDigit(src[i]) {
				advance(1)
			}
			if i < len(src) && src[i] == '.' {
				advance(1)
				for i < len(src) && isDigit(src[i]) {
					advance(1)
				}
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				advance(1)
				if i < len(src) && (src[i] == '+' || src[i] == '-') {
					advance(1)
				}
				for i < len(src) && isDigit(src[i]) {
					advance(1)
				}
			}
			tokens = append(tokens, token{typ: tokenNumber, value: src[start:i], line: startLine, column: startCol})
			continue
		}

		// Identifiers and keywords
		if isIdentStart(c) {
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				advance(1)
			}
			word := src[start:i]
			switch word {
			case "true", "false":
				tokens = append(tokens, token{typ: tokenBool, value: word, line: startLine, column: startCol})
			case "null":
				tokens = append(tokens, token{typ: tokenNull, value: word, line: startLine, column: startCol})
			default:
				tokens = append(tokens, token{typ: tokenIdent, value: word, line: startLine, column: startCol})
			}
			continue
		}

		return nil, errorAt(startLine, startCol, "unexpected character %q", c)
	}

	tokens = append(tokens, token{typ: tokenEOF, line: line, column: col})
	return tokens, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenBool:
		return "boolean"
	case tokenNull:
		return "null"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenColon:
		return "':'"
	case tokenComma:
		return "','"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}
