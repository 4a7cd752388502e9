// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Very basic S-expression parser.  Used for reading instruction
// listings.  A ';' comments out the rest of the line.

package util

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/nikandfor/errors"
)

type SExpKindT int

const (
	SExpInt SExpKindT = iota
	SExpSymbol
	SExpList
)

type SExpT struct {
	Kind    SExpKindT
	Integer int
	Symbol  string
	List    []*SExpT
	Line    int // where the expression starts
}

func (sexp *SExpT) String() string {
	switch sexp.Kind {
	case SExpInt:
		return fmt.Sprintf("%d", sexp.Integer)
	case SExpSymbol:
		return sexp.Symbol
	case SExpList:
		if len(sexp.List) == 0 {
			return "()"
		}
		result := "(" + sexp.List[0].String()
		for _, s := range sexp.List[1:] {
			result += " " + s.String()
		}
		return result + ")"
	}
	panic("bad S-expression")
}

func (sexp *SExpT) IsSymbol(name string) bool {
	return sexp.Kind == SExpSymbol && sexp.Symbol == name
}

// Parses all of the top-level expressions in 'data'.

func ParseSExps(data string) ([]*SExpT, error) {
	tokens := &tokenizerT{reader: bufio.NewReader(strings.NewReader(data)), line: 1}
	result := []*SExpT{}
	for {
		sexp, err := parseSExp(tokens, false)
		if err != nil {
			return nil, err
		}
		if sexp == nil {
			return result, nil
		}
		result = append(result, sexp)
	}
}

// Parses a single expression, which must be all there is.

func ParseSExp(data string) (*SExpT, error) {
	sexps, err := ParseSExps(data)
	if err != nil {
		return nil, err
	}
	if len(sexps) != 1 {
		return nil, errors.New("expected one S-expression, found %d", len(sexps))
	}
	return sexps[0], nil
}

// Returns nil at end of input, or at a ')' when 'inList' is true.

func parseSExp(tokens *tokenizerT, inList bool) (*SExpT, error) {
	token, line, err := tokens.next()
	if err != nil {
		return nil, err
	}
	switch token {
	case "":
		if inList {
			return nil, errors.New("line %d: unexpected end of input", line)
		}
		return nil, nil
	case ")":
		if !inList {
			return nil, errors.New("line %d: unexpected ')'", line)
		}
		return nil, nil
	case "(":
		list := &SExpT{Kind: SExpList, Line: line, List: []*SExpT{}}
		for {
			elt, err := parseSExp(tokens, true)
			if err != nil {
				return nil, err
			}
			if elt == nil {
				return list, nil
			}
			list.List = append(list.List, elt)
		}
	}
	i, err := strconv.Atoi(token)
	if err == nil {
		return &SExpT{Kind: SExpInt, Integer: i, Line: line}, nil
	}
	return &SExpT{Kind: SExpSymbol, Symbol: token, Line: line}, nil
}

type tokenizerT struct {
	reader *bufio.Reader
	line   int
}

// Returns the next token and the line it is on.  The empty string
// means end of input.

func (tokens *tokenizerT) next() (string, int, error) {
	var contents strings.Builder
	reading := false
	for {
		c, _, err := tokens.reader.ReadRune()
		if reading {
			if err != nil || !isSymbolConstituent(c) {
				if err == nil {
					tokens.reader.UnreadRune()
				}
				return contents.String(), tokens.line, nil
			}
			contents.WriteRune(c)
			continue
		}
		switch {
		case err == io.EOF:
			return "", tokens.line, nil
		case err != nil:
			return "", tokens.line, errors.Wrap(err, "read")
		case c == '\n':
			tokens.line += 1
		case unicode.IsSpace(c):
			// skip
		case c == ';':
			for c != '\n' {
				c, _, err = tokens.reader.ReadRune()
				if err != nil {
					return "", tokens.line, nil
				}
			}
			tokens.line += 1
		case c == '(':
			return "(", tokens.line, nil
		case c == ')':
			return ")", tokens.line, nil
		case isSymbolConstituent(c):
			contents.WriteRune(c)
			reading = true
		default:
			return "", tokens.line, errors.New("line %d: unrecognized s-expression character %s",
				tokens.line, strconv.QuoteRune(c))
		}
	}
}

func isSymbolConstituent(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(":_*&-.%$", r)
}
