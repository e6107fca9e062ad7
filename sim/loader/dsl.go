package loader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/simcraft/simcraft/sim"
)

// ParseDSL parses the inline block-form model DSL (spec.md §6):
//
//	processes {
//	    source "source1" {}
//	    pool "pool1" { capacity: 3.0, overflow: Block }
//	}
//	connections {
//	    "source1.out" -> "pool1.in" { id: "conn1", flow_rate: 1.0 }
//	}
//
// Whitespace-insensitive; trailing commas are tolerated. This grammar
// mirrors the block shape of the original macro DSL (processes{...}
// connections{...}) but is parsed as data, not expanded at compile time.
func ParseDSL(src string) (*Document, error) {
	p := &dslParser{toks: lex(src)}
	doc, err := p.parseDocument()
	if err != nil {
		return nil, sim.WrapErr(sim.ParseError, err, "parsing model dsl")
	}
	return doc, nil
}

// BuildFromDSL parses and builds a Simulation from DSL source in one step.
func BuildFromDSL(src string) (*sim.Simulation, error) {
	doc, err := ParseDSL(src)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokLBrace
	tokRBrace
	tokColon
	tokComma
	tokArrow
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

// lex tokenizes src. Identifiers are runs of letters, digits, and
// underscores; string literals are double-quoted with no escape support
// (ids and endpoints never need one); numbers are plain decimal floats.
func lex(src string) []token {
	var toks []token
	r := []rune(src)
	i := 0
	for i < len(r) {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '{':
			toks = append(toks, token{tokLBrace, "{"})
			i++
		case c == '}':
			toks = append(toks, token{tokRBrace, "}"})
			i++
		case c == ':':
			toks = append(toks, token{tokColon, ":"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '-' && i+1 < len(r) && r[i+1] == '>':
			toks = append(toks, token{tokArrow, "->"})
			i += 2
		case c == '"':
			j := i + 1
			for j < len(r) && r[j] != '"' {
				j++
			}
			toks = append(toks, token{tokString, string(r[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(c) || c == '-' || c == '.':
			j := i + 1
			for j < len(r) && (unicode.IsDigit(r[j]) || r[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, string(r[i:j])})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i + 1
			for j < len(r) && (unicode.IsLetter(r[j]) || unicode.IsDigit(r[j]) || r[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, string(r[i:j])})
			i = j
		default:
			i++ // ignore stray characters (e.g. unsupported punctuation)
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks
}

type dslParser struct {
	toks []token
	pos  int
}

func (p *dslParser) peek() token { return p.toks[p.pos] }

func (p *dslParser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *dslParser) expect(k tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, fmt.Errorf("expected %s, got %q", what, t.text)
	}
	return t, nil
}

func (p *dslParser) parseDocument() (*Document, error) {
	doc := &Document{}

	head, err := p.expect(tokIdent, `"processes"`)
	if err != nil || head.text != "processes" {
		return nil, fmt.Errorf("model must start with a processes block")
	}
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	for p.peek().kind != tokRBrace {
		rec, err := p.parseProcessDef()
		if err != nil {
			return nil, err
		}
		doc.Processes = append(doc.Processes, rec)
		if p.peek().kind == tokComma {
			p.next()
		}
	}
	p.next() // consume '}'

	head, err = p.expect(tokIdent, `"connections"`)
	if err != nil || head.text != "connections" {
		return nil, fmt.Errorf("processes block must be followed by a connections block")
	}
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	for p.peek().kind != tokRBrace {
		rec, err := p.parseConnectionDef()
		if err != nil {
			return nil, err
		}
		doc.Connections = append(doc.Connections, rec)
		if p.peek().kind == tokComma {
			p.next()
		}
	}
	p.next() // consume '}'

	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input %q", p.peek().text)
	}
	return doc, nil
}

var dslKinds = map[string]sim.ProcessKind{
	"source":  sim.KindSource,
	"pool":    sim.KindPool,
	"drain":   sim.KindDrain,
	"delay":   sim.KindDelay,
	"stepper": sim.KindStepper,
}

func (p *dslParser) parseProcessDef() (sim.ProcessRecord, error) {
	kindTok, err := p.expect(tokIdent, "process kind")
	if err != nil {
		return sim.ProcessRecord{}, err
	}
	kind, ok := dslKinds[kindTok.text]
	if !ok {
		return sim.ProcessRecord{}, fmt.Errorf("unknown process kind %q", kindTok.text)
	}
	idTok, err := p.expect(tokString, "process id")
	if err != nil {
		return sim.ProcessRecord{}, err
	}
	fields, err := p.parseBlock()
	if err != nil {
		return sim.ProcessRecord{}, err
	}

	rec := sim.ProcessRecord{ID: idTok.text, Type: kind}
	for name, val := range fields {
		switch name {
		case "trigger_mode":
			rec.TriggerMode = sim.TriggerMode(val)
		case "action":
			rec.Action = val
		case "overflow":
			rec.Overflow = sim.Overflow(val)
		case "capacity":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return sim.ProcessRecord{}, fmt.Errorf("process %q: capacity: %w", idTok.text, err)
			}
			rec.Capacity = &f
		case "release_amount":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return sim.ProcessRecord{}, fmt.Errorf("process %q: release_amount: %w", idTok.text, err)
			}
			rec.ReleaseAmount = &f
		case "dt":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return sim.ProcessRecord{}, fmt.Errorf("process %q: dt: %w", idTok.text, err)
			}
			rec.Dt = &f
		case "resources":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return sim.ProcessRecord{}, fmt.Errorf("process %q: resources: %w", idTok.text, err)
			}
			rec.InitialResources = &f
		default:
			return sim.ProcessRecord{}, fmt.Errorf("process %q: unknown field %q", idTok.text, name)
		}
	}
	return rec, nil
}

func (p *dslParser) parseConnectionDef() (sim.ConnectionRecord, error) {
	srcTok, err := p.expect(tokString, "source endpoint")
	if err != nil {
		return sim.ConnectionRecord{}, err
	}
	if _, err := p.expect(tokArrow, "->"); err != nil {
		return sim.ConnectionRecord{}, err
	}
	tgtTok, err := p.expect(tokString, "target endpoint")
	if err != nil {
		return sim.ConnectionRecord{}, err
	}
	fields, err := p.parseBlock()
	if err != nil {
		return sim.ConnectionRecord{}, err
	}

	srcID, srcPort := parseEndpoint(srcTok.text)
	tgtID, tgtPort := parseEndpoint(tgtTok.text)
	rec := sim.ConnectionRecord{
		ID: fmt.Sprintf("conn_%s_%s", srcID, tgtID),
		SourceID: srcID, SourcePort: srcPort,
		TargetID: tgtID, TargetPort: tgtPort,
	}
	for name, val := range fields {
		switch name {
		case "id":
			rec.ID = val
		case "flow_rate":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return sim.ConnectionRecord{}, fmt.Errorf("connection %s->%s: flow_rate: %w", srcTok.text, tgtTok.text, err)
			}
			rec.FlowRate = &f
		default:
			return sim.ConnectionRecord{}, fmt.Errorf("connection %s->%s: unknown field %q", srcTok.text, tgtTok.text, name)
		}
	}
	return rec, nil
}

// parseBlock parses a "{ field: value, ... }" field list, tolerating an
// empty block and a trailing comma before the closing brace.
func (p *dslParser) parseBlock() (map[string]string, error) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	fields := map[string]string{}
	for p.peek().kind != tokRBrace {
		nameTok, err := p.expect(tokIdent, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}
		valTok := p.next()
		if valTok.kind != tokString && valTok.kind != tokNumber && valTok.kind != tokIdent {
			return nil, fmt.Errorf("field %q: expected a value, got %q", nameTok.text, valTok.text)
		}
		fields[nameTok.text] = valTok.text
		if p.peek().kind == tokComma {
			p.next()
		}
	}
	p.next() // consume '}'
	return fields, nil
}

// parseEndpoint splits "id.port" into its id and port parts; a bare id
// with no port yields an empty port, letting NewConnectionFromRecord
// apply the "out"/"in" defaults.
func parseEndpoint(endpoint string) (id, port string) {
	if idx := strings.IndexByte(endpoint, '.'); idx >= 0 {
		return endpoint[:idx], endpoint[idx+1:]
	}
	return endpoint, ""
}
