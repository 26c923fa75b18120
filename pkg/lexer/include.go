package lexer

import (
	pc "github.com/prataprc/goparsec"
)

// includeAST recognizes the quoted path payload of a `-include "path"`
// directive the same way the teacher's own jack/vm parsers pull a quoted
// literal out of raw source text: a combinator grammar rather than hand
// rolled quote scanning, since this one sub-grammar is genuinely a small
// embedded language within a single token rather than part of the
// hand-written scanning loop.
var includeAST = pc.NewAST("include_directive", 0)

var pIncludePath = includeAST.And("include_path", nil,
	pc.Token(`"[^"]*"`, "PATH"),
)

// parseIncludePath extracts the unquoted path from the remainder of the
// line following an `-include` keyword.
func parseIncludePath(rest string) (string, bool) {
	root, scanner := includeAST.Parsewith(pIncludePath, pc.NewScanner([]byte(rest)))
	if root == nil || scanner == nil {
		return "", false
	}
	terms := root.GetChildren()
	if len(terms) == 0 {
		return "", false
	}
	raw := terms[0].GetValue()
	if len(raw) < 2 {
		return "", false
	}
	return raw[1 : len(raw)-1], true
}
