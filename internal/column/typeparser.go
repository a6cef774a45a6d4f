package column

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// typeDesc is one recursive-descent parse node over the "Name(args)"
// type-descriptor grammar (spec.md §4.3): a bare name (e.g. "String"),
// or a name with a parenthesized, comma-separated argument list whose
// elements may themselves be nested type descriptors, bare integers,
// or quoted strings (used by Enum labels).
type typeDesc struct {
	name string
	args []typeArg
}

// typeArg is one element of a type descriptor's argument list.
type typeArg struct {
	raw    string
	nested *typeDesc
}

func (a typeArg) desc() typeDesc {
	if a.nested != nil {
		return *a.nested
	}
	return typeDesc{name: a.raw}
}

func (a typeArg) intArg() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(a.raw))
	if err != nil {
		return 0, fmt.Errorf("expected integer argument, got %q", a.raw)
	}
	return n, nil
}

func (a typeArg) stringArg() (string, error) {
	s := strings.TrimSpace(a.raw)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "\\'", "'"), nil
	}
	return s, nil
}

// descriptorCache memoizes parses of repeated type strings (the same
// handful of column types recur across every row-batch of a query),
// keyed by an xxhash64 digest of the raw descriptor rather than the
// string itself, to keep the map's comparison cost to a single
// uint64 compare regardless of descriptor length.
var descriptorCache sync.Map // map[uint64]typeDesc

func parseType(s string) (typeDesc, error) {
	key := xxhash.Sum64String(s)
	if v, ok := descriptorCache.Load(key); ok {
		return v.(typeDesc), nil
	}
	p := &typeParser{s: s}
	d, err := p.parseDesc()
	if err != nil {
		return typeDesc{}, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return typeDesc{}, fmt.Errorf("unexpected trailing input at %d in %q", p.pos, s)
	}
	descriptorCache.Store(key, d)
	return d, nil
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) parseDesc() (typeDesc, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '(' || c == ',' || c == ')' {
			break
		}
		p.pos++
	}
	name := strings.TrimSpace(p.s[start:p.pos])
	if name == "" {
		return typeDesc{}, fmt.Errorf("expected type name at %d in %q", start, p.s)
	}
	d := typeDesc{name: name}

	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '(' {
		p.pos++ // consume '('
		args, err := p.parseArgs()
		if err != nil {
			return typeDesc{}, err
		}
		d.args = args
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ')' {
			return typeDesc{}, fmt.Errorf("expected ')' at %d in %q", p.pos, p.s)
		}
		p.pos++ // consume ')'
	}
	return d, nil
}

func (p *typeParser) parseArgs() ([]typeArg, error) {
	var args []typeArg
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == ')' {
		return args, nil
	}
	for {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.pos < len(p.s) && p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}
	return args, nil
}

func (p *typeParser) parseArg() (typeArg, error) {
	p.skipSpace()

	// Look ahead: is this a nested type descriptor (identifier
	// followed eventually by '(' before the next top-level ',' or ')')
	// or a bare token (integer, identifier, or an Enum label possibly
	// followed by "=N")? Quoted sections are skipped verbatim so a
	// comma or paren inside an Enum label string doesn't end the scan
	// early.
	start := p.pos
	depth := 0
	inQuote := false
	for i := p.pos; i < len(p.s); i++ {
		c := p.s[i]
		if inQuote {
			if c == '\\' {
				i++
				continue
			}
			if c == '\'' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return p.finishBareOrNested(start, i)
			}
			depth--
		case ',':
			if depth == 0 {
				return p.finishBareOrNested(start, i)
			}
		}
	}
	return p.finishBareOrNested(start, len(p.s))
}

func (p *typeParser) finishBareOrNested(start, end int) (typeArg, error) {
	segment := p.s[start:end]
	if strings.ContainsRune(segment, '(') {
		save := p.pos
		p.pos = start
		d, err := p.parseDesc()
		if err != nil {
			p.pos = save
			return typeArg{}, err
		}
		return typeArg{raw: strings.TrimSpace(segment), nested: &d}, nil
	}
	p.pos = end
	return typeArg{raw: strings.TrimSpace(segment)}, nil
}

