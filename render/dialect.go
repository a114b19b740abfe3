package render

import (
	"fmt"
	"strings"
)

// Template markup is remapped so it never collides with LaTeX syntax.
const (
	// LeftDelim and RightDelim surround every action after translation.
	LeftDelim  = `\VAR{`
	RightDelim = `}`

	blockStart    = `\BLOCK{`
	commentStart  = `\#{`
	lineStatement = "%%"
	lineComment   = "%#"
)

// translate rewrites template source into plain text/template markup using
// LeftDelim and RightDelim:
//
//	\VAR{ expr }      - kept as is
//	\BLOCK{ action }  - becomes \VAR{ action }, single newline after it is dropped
//	\#{ text }        - removed together with single newline after it
//	%% action         - whole line becomes \VAR{ action }
//	%# text           - removed up to the end of line with preceding blanks
func translate(name, src string) (string, error) {
	var lines strings.Builder
	lines.Grow(len(src))

	for n, line := range strings.SplitAfter(src, "\n") {
		trimmed := strings.TrimLeft(strings.TrimRight(line, "\r\n"), " \t")

		if stmt, ok := strings.CutPrefix(trimmed, lineStatement); ok {
			stmt = strings.TrimSpace(stmt)
			if len(stmt) == 0 {
				return "", fmt.Errorf("%s:%d: empty line statement", name, n+1)
			}
			lines.WriteString(LeftDelim + " " + stmt + " " + RightDelim)
			continue
		}
		lines.WriteString(line)
	}
	return translateTags(name, lines.String())
}

func translateTags(name, src string) (string, error) {
	var out strings.Builder
	out.Grow(len(src))

	for pos := 0; pos < len(src); {
		start, tag := nextTag(src, pos)
		if start < 0 {
			out.WriteString(src[pos:])
			break
		}
		text := src[pos:start]
		open := start + len(tag)

		switch tag {
		case lineComment:
			// comment runs to the end of line, line break itself is kept
			out.WriteString(strings.TrimRight(text, " \t"))
			pos = open + strings.IndexAny(src[open:]+"\n", "\r\n")
			continue
		case commentStart:
			// comment text is not parsed, first closing brace ends it
			end := strings.Index(src[open:], RightDelim)
			if end < 0 {
				return "", fmt.Errorf("%s:%d: unterminated %s", name, lineOf(src, start), tag)
			}
			out.WriteString(text)
			pos = skipNewline(src, open+end+len(RightDelim))
			continue
		}

		out.WriteString(text)
		end := closingDelim(src, open)
		if end < 0 {
			return "", fmt.Errorf("%s:%d: unterminated %s", name, lineOf(src, start), tag)
		}
		pos = end + len(RightDelim)

		if tag == blockStart {
			out.WriteString(LeftDelim + src[open:end] + RightDelim)
			pos = skipNewline(src, pos)
		} else {
			out.WriteString(src[start:pos])
		}
	}
	return out.String(), nil
}

// skipNewline returns position after a single line break at pos, if any.
func skipNewline(src string, pos int) int {
	if strings.HasPrefix(src[pos:], "\r\n") {
		return pos + 2
	}
	if strings.HasPrefix(src[pos:], "\n") {
		return pos + 1
	}
	return pos
}

// nextTag finds the earliest tag or line comment opening at or after pos.
func nextTag(src string, pos int) (int, string) {
	start, tag := -1, ""
	for _, t := range []string{LeftDelim, blockStart, commentStart, lineComment} {
		if i := strings.Index(src[pos:], t); i >= 0 && (start < 0 || pos+i < start) {
			start, tag = pos+i, t
		}
	}
	return start, tag
}

// closingDelim returns position of RightDelim closing the tag body which
// starts at pos, skipping over quoted strings and character constants.
func closingDelim(src string, pos int) int {
	var quote byte
	for i := pos; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case strings.HasPrefix(src[i:], RightDelim):
			return i
		}
	}
	return -1
}

func lineOf(src string, pos int) int {
	return strings.Count(src[:pos], "\n") + 1
}
