package sparql

import (
	"regexp"
	"strings"
)

// Form is the top-level SPARQL form of a query or update request.
type Form string

const (
	Select    Form = "SELECT"
	Ask       Form = "ASK"
	Construct Form = "CONSTRUCT"
	Describe  Form = "DESCRIBE"
	Insert    Form = "INSERT"
	Delete    Form = "DELETE"
	Create    Form = "CREATE"
	Clear     Form = "CLEAR"
	Drop      Form = "DROP"
	Load      Form = "LOAD"
	Copy      Form = "COPY"
	Move      Form = "MOVE"
	Add       Form = "ADD"
)

// IsUpdate reports whether the form belongs to SPARQL 1.1 Update.
func (f Form) IsUpdate() bool {
	switch f {
	case Insert, Delete, Create, Clear, Drop, Load, Copy, Move, Add:
		return true
	}
	return false
}

// IsGraph reports whether the form returns an RDF graph rather than a result set.
func (f Form) IsGraph() bool {
	return f == Construct || f == Describe
}

// leading BASE and PREFIX declarations, matched case-insensitively
var prologueRegex = regexp.MustCompile(`(?i)^(?:\s*(?:BASE\s*<[^>]*>|PREFIX\s+[^\s<>]*\s*<[^>]*>)\s*)*`)
var keywordRegex = regexp.MustCompile(`(?i)\b(SELECT|CONSTRUCT|ASK|DESCRIBE|INSERT|DELETE|CREATE|CLEAR|DROP|LOAD|COPY|MOVE|ADD)\b`)
var iriRefRegex = regexp.MustCompile("<[^<>\"{}|^`\\\\\\s]*>")

// Classify determines the form of query from the first keyword after the prologue and
// before the first '{'. The boolean is false when no keyword was found, in which case
// Select is returned so the request can still be built.
func Classify(query string) (Form, bool) {
	text := blankTrailingComments(StripComments(query))
	text = prologueRegex.ReplaceAllString(text, "")
	// blank out IRIs so WITH <http://ex/drop> DELETE ... is not read as DROP
	text = iriRefRegex.ReplaceAllStringFunc(text, func(iri string) string {
		return strings.Repeat(" ", len(iri))
	})
	if i := strings.IndexByte(text, '{'); i >= 0 {
		text = text[:i]
	}
	for _, loc := range keywordRegex.FindAllStringIndex(text, -1) {
		// skip variables (?add, $select) and prefixed names (ex:drop)
		if loc[0] > 0 && strings.ContainsRune("?$:", rune(text[loc[0]-1])) {
			continue
		}
		// skip local parts of prefixed names (drop:x)
		if loc[1] < len(text) && text[loc[1]] == ':' {
			continue
		}
		return Form(strings.ToUpper(text[loc[0]:loc[1]])), true
	}
	return Select, false
}

// blankTrailingComments replaces a '#' outside IRI references and string literals, and
// the rest of its line, with spaces. Offsets and line breaks are kept.
func blankTrailingComments(text string) string {
	b := []byte(text)
	var quote byte
	inIRI, inComment := false, false
	for i, c := range b {
		switch {
		case c == '\n' || c == '\r':
			quote, inIRI, inComment = 0, false, false
		case inComment:
			b[i] = ' '
		case quote != 0:
			if c == quote && (i == 0 || b[i-1] != '\\') {
				quote = 0
			}
		case inIRI:
			if c == '>' || c == ' ' || c == '\t' {
				inIRI = false
			}
		case c == '<':
			inIRI = true
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			inComment = true
			b[i] = ' '
		}
	}
	return string(b)
}

// StripComments removes lines whose first non-blank character is '#'. Line terminators
// are preserved, and a '#' after other tokens on the same line is left untouched, so IRIs
// with fragments such as <http://ex/ns#foo> survive. Trailing comments after tokens are
// therefore not removed.
func StripComments(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for len(query) > 0 {
		line, terminator, rest := nextLine(query)
		if !strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			b.WriteString(line)
		}
		b.WriteString(terminator)
		query = rest
	}
	return b.String()
}

// nextLine splits off the first line and its terminator (\n, \r\n or \r).
func nextLine(s string) (line, terminator, rest string) {
	i := strings.IndexAny(s, "\r\n")
	if i < 0 {
		return s, "", ""
	}
	if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
		return s[:i], "\r\n", s[i+2:]
	}
	return s[:i], s[i : i+1], s[i+1:]
}
