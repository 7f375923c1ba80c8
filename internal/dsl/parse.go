package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/loomworks/loom/internal/graph"
)

// Parse parses flow-module source text into a workflow graph.
//
// Parsing is strict about structure and lenient about content: malformed
// syntax, duplicate fields, an unknown node kind, or a missing required
// module field return a *ParseError and no workflow, while recoverable
// oddities (unknown config fields, transitions to missing nodes,
// undeclared environment names) are collected as warnings on an
// otherwise usable graph.
func Parse(src string) (*graph.Workflow, []string, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, nil, err
	}

	p := &parser{tokens: tokens}
	mod, err := p.parseModule()
	if err != nil {
		return nil, nil, err
	}

	w, err := p.buildWorkflow(mod)
	if err != nil {
		return nil, nil, err
	}
	return w, p.warnings, nil
}

// moduleLit is the raw parse of one flow module: the use header and the
// single export default literal, before any graph semantics are applied.
type moduleLit struct {
	uses   []useDecl
	export objectValue
}

type useDecl struct {
	name string
	path string
	line int
	col  int
}

type parser struct {
	tokens   []token
	pos      int
	warnings []string
}

func (p *parser) current() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ tokenType) (token, error) {
	tok := p.current()
	if tok.typ != typ {
		return tok, errorAt(tok.line, tok.column, "expected %s, got %s", typ, describe(tok))
	}
	return p.advance(), nil
}

// expectKeyword consumes an identifier token with an exact value.
func (p *parser) expectKeyword(word string) error {
	tok := p.current()
	if tok.typ != tokenIdent || tok.value != word {
		return errorAt(tok.line, tok.column, "expected %q, got %s", word, describe(tok))
	}
	p.advance()
	return nil
}

func (p *parser) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func describe(tok token) string {
	switch tok.typ {
	case tokenEOF:
		return "end of input"
	case tokenString:
		return fmt.Sprintf("string %q", tok.value)
	default:
		return fmt.Sprintf("%q", tok.value)
	}
}

// parseModule recognizes the top-level shape:
//
//	use NAME from "PATH"
//	...
//	export default { ... }
func (p *parser) parseModule() (*moduleLit, error) {
	mod := &moduleLit{}

	seen := make(map[string]bool)
	for p.current().typ == tokenIdent && p.current().value == "use" {
		use, err := p.parseUse()
		if err != nil {
			return nil, err
		}
		if seen[use.name] {
			return nil, errorAt(use.line, use.col, "duplicate reference name %q", use.name)
		}
		seen[use.name] = true
		mod.uses = append(mod.uses, use)
	}

	if err := p.expectKeyword("export"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("default"); err != nil {
		return nil, err
	}

	obj, err := p.parseObject()
	if err != nil {
		return nil, err
	}
	mod.export = obj

	if tok := p.current(); tok.typ != tokenEOF {
		return nil, errorAt(tok.line, tok.column, "unexpected %s after module export", describe(tok))
	}
	return mod, nil
}

func (p *parser) parseUse() (useDecl, error) {
	start := p.advance() // the "use" keyword

	name, err := p.expect(tokenIdent)
	if err != nil {
		return useDecl{}, err
	}
	if err := p.expectKeyword("from"); err != nil {
		return useDecl{}, err
	}
	path, err := p.expect(tokenString)
	if err != nil {
		return useDecl{}, err
	}

	return useDecl{name: name.value, path: path.value, line: start.line, col: start.column}, nil
}

func (p *parser) parseValue() (value, error) {
	tok := p.current()
	switch tok.typ {
	case tokenString:
		p.advance()
		return stringValue{val: tok.value, line: tok.line, col: tok.column}, nil
	case tokenNumber:
		p.advance()
		return parseNumber(tok)
	case tokenBool:
		p.advance()
		return boolValue{val: tok.value == "true", line: tok.line, col: tok.column}, nil
	case tokenNull:
		p.advance()
		return nullValue{line: tok.line, col: tok.column}, nil
	case tokenIdent:
		p.advance()
		return refValue{name: tok.value, line: tok.line, col: tok.column}, nil
	case tokenLBrace:
		return p.parseObject()
	case tokenLBracket:
		return p.parseArray()
	default:
		return nil, errorAt(tok.line, tok.column, "expected a value, got %s", describe(tok))
	}
}

func parseNumber(tok token) (value, error) {
	raw := tok.value
	if !strings.ContainsAny(raw, ".eE") {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			return numberValue{i: n, isInt: true, line: tok.line, col: tok.column}, nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errorAt(tok.line, tok.column, "invalid number literal %q", raw)
	}
	return numberValue{f: f, line: tok.line, col: tok.column}, nil
}

// parseObject parses { key: value, ... }. Keys are bare identifiers or
// quoted strings. A trailing comma before the closing brace is accepted.
func (p *parser) parseObject() (objectValue, error) {
	open, err := p.expect(tokenLBrace)
	if err != nil {
		return objectValue{}, err
	}

	obj := objectValue{line: open.line, col: open.column}
	seen := make(map[string]bool)

	for {
		tok := p.current()
		if tok.typ == tokenRBrace {
			p.advance()
			return obj, nil
		}

		var key token
		switch tok.typ {
		case tokenIdent, tokenString, tokenBool, tokenNull:
			// Bool and null words are legal as keys even though they lex
			// as their own token types in value position.
			key = p.advance()
		default:
			return objectValue{}, errorAt(tok.line, tok.column, "expected a field name, got %s", describe(tok))
		}

		if seen[key.value] {
			return objectValue{}, errorAt(key.line, key.column, "duplicate field %q", key.value)
		}
		seen[key.value] = true

		if _, err := p.expect(tokenColon); err != nil {
			return objectValue{}, err
		}

		val, err := p.parseValue()
		if err != nil {
			return objectValue{}, err
		}
		obj.fields = append(obj.fields, objectField{key: key.value, value: val, line: key.line, col: key.column})

		switch p.current().typ {
		case tokenComma:
			p.advance()
		case tokenRBrace:
			// closing brace handled on the next iteration
		default:
			tok := p.current()
			return objectValue{}, errorAt(tok.line, tok.column, "expected ',' or '}', got %s", describe(tok))
		}
	}
}

func (p *parser) parseArray() (arrayValue, error) {
	open, err := p.expect(tokenLBracket)
	if err != nil {
		return arrayValue{}, err
	}

	arr := arrayValue{line: open.line, col: open.column}
	for {
		if p.current().typ == tokenRBracket {
			p.advance()
			return arr, nil
		}

		item, err := p.parseValue()
		if err != nil {
			return arrayValue{}, err
		}
		arr.items = append(arr.items, item)

		switch p.current().typ {
		case tokenComma:
			p.advance()
		case tokenRBracket:
			// closing bracket handled on the next iteration
		default:
			tok := p.current()
			return arrayValue{}, errorAt(tok.line, tok.column, "expected ',' or ']', got %s", describe(tok))
		}
	}
}

// pendingEdge is a transition recorded while walking node literals.
// Edges are materialized only after every node exists so that warnings
// about unknown targets can distinguish "declared later" from "missing".
type pendingEdge struct {
	source string
	handle string
	target string
}

func (p *parser) buildWorkflow(mod *moduleLit) (*graph.Workflow, error) {
	obj := mod.export

	idField, ok := obj.get("id")
	if !ok {
		return nil, errorAt(obj.line, obj.col, "module is missing required field %q", "id")
	}
	id, perr := wantString(idField)
	if perr != nil {
		return nil, perr
	}
	if id == "" {
		line, col := idField.value.pos()
		return nil, errorAt(line, col, "field %q must not be empty", "id")
	}

	w := graph.New(id)
	for _, use := range mod.uses {
		w.References = append(w.References, graph.Reference{Name: use.name, Path: use.path})
	}

	var (
		nodesField objectField
		haveNodes  bool
		startField objectField
		haveStart  bool
	)

	for _, f := range obj.fields {
		switch f.key {
		case "id":
			// consumed above
		case "name":
			s, perr := wantString(f)
			if perr != nil {
				return nil, perr
			}
			w.Name = s
		case "description":
			s, perr := wantString(f)
			if perr != nil {
				return nil, perr
			}
			w.Description = s
		case "env":
			switch v := f.value.(type) {
			case refValue:
				w.Env = v.name
			case stringValue:
				w.Env = v.val
			default:
				line, col := f.value.pos()
				return nil, errorAt(line, col, "field %q must be a reference name or string", "env")
			}
		case "context":
			ctx, perr := wantObject(f)
			if perr != nil {
				return nil, perr
			}
			m, _ := toAny(ctx).(map[string]any)
			if len(m) > 0 {
				w.Context = m
			}
		case "start":
			startField = f
			haveStart = true
		case "nodes":
			nodesField = f
			haveNodes = true
		default:
			p.warnf("unknown module field %q ignored", f.key)
		}
	}

	if !haveStart {
		return nil, errorAt(obj.line, obj.col, "module is missing required field %q", "start")
	}
	start, perr := wantString(startField)
	if perr != nil {
		return nil, perr
	}
	w.Start = start

	if !haveNodes {
		return nil, errorAt(obj.line, obj.col, "module is missing required field %q", "nodes")
	}
	nodesObj, perr := wantObject(nodesField)
	if perr != nil {
		return nil, perr
	}

	var pending []pendingEdge
	for _, nf := range nodesObj.fields {
		if nf.key == "" {
			return nil, errorAt(nf.line, nf.col, "node id must not be empty")
		}
		node, edges, err := p.buildNode(nf)
		if err != nil {
			return nil, err
		}
		w.Nodes[node.ID] = node
		pending = append(pending, edges...)
	}

	for _, pe := range pending {
		if _, ok := w.Nodes[pe.target]; !ok {
			p.warnf("node %s: transition to unknown node %q", pe.source, pe.target)
		}
		if pe.target == pe.source {
			if node, ok := w.Nodes[pe.source]; ok && !node.Kind.AllowsSelfLoop() {
				p.warnf("node %s: self-referencing transition on kind %s", pe.source, node.Kind)
			}
		}
		w.Edges = append(w.Edges, graph.NewEdge(pe.source, pe.handle, pe.target))
	}

	if w.Start != "" {
		if _, ok := w.Nodes[w.Start]; !ok {
			p.warnf("start references unknown node %q", w.Start)
		}
	}
	if w.Env != "" {
		if _, ok := w.GetReference(w.Env); !ok {
			p.warnf("env references undeclared reference %q", w.Env)
		}
	}

	return w, nil
}

func (p *parser) buildNode(nf objectField) (*graph.NodeRecord, []pendingEdge, error) {
	nodeID := nf.key
	obj, ok := nf.value.(objectValue)
	if !ok {
		line, col := nf.value.pos()
		return nil, nil, nodeErrorAt(nodeID, line, col, "node must be an object")
	}

	kindField, ok := obj.get("kind")
	if !ok {
		return nil, nil, nodeErrorAt(nodeID, obj.line, obj.col, "node is missing required field %q", "kind")
	}
	kindStr, perr := wantNodeString(nodeID, kindField)
	if perr != nil {
		return nil, nil, perr
	}
	kind := graph.NodeKind(kindStr)
	if !kind.IsValid() {
		line, col := kindField.value.pos()
		return nil, nil, nodeErrorAt(nodeID, line, col, "unknown node kind %q", kindStr)
	}

	node := &graph.NodeRecord{ID: nodeID, Kind: kind}
	cfg, err := graph.NewConfig(kind)
	if err != nil {
		return nil, nil, err
	}
	node.Config = cfg

	var edges []pendingEdge
	for _, f := range obj.fields {
		switch f.key {
		case "kind":
			// consumed above
		case "label":
			s, perr := wantNodeString(nodeID, f)
			if perr != nil {
				return nil, nil, perr
			}
			node.Label = s
		case "orphan":
			b, ok := f.value.(boolValue)
			if !ok {
				line, col := f.value.pos()
				return nil, nil, nodeErrorAt(nodeID, line, col, "field %q must be a boolean", f.key)
			}
			node.Orphan = b.val
		case "next", "onError", "onTrue", "onFalse":
			handle, allowed := transitionHandle(kind, f.key)
			if !allowed {
				p.warnf("node %s: transition %q is not valid for kind %s; dropped", nodeID, f.key, kind)
				continue
			}
			target, perr := wantNodeString(nodeID, f)
			if perr != nil {
				return nil, nil, perr
			}
			edges = append(edges, pendingEdge{source: nodeID, handle: handle, target: target})
		default:
			if perr := p.applyConfigField(nodeID, cfg, f); perr != nil {
				return nil, nil, perr
			}
		}
	}

	return node, edges, nil
}

// transitionHandle maps a transition field name to its source handle,
// honoring which handles each kind declares: eval branches on
// onTrue/onFalse, end has no outgoing ports, and everything else gets
// next plus an optional onError.
func transitionHandle(kind graph.NodeKind, field string) (string, bool) {
	switch field {
	case "next":
		if kind.IsTerminal() || kind == graph.KindEval {
			return "", false
		}
		return graph.HandleDefault, true
	case "onError":
		if kind.IsTerminal() || kind == graph.KindEval {
			return "", false
		}
		return graph.HandleError, true
	case "onTrue":
		if kind == graph.KindEval {
			return graph.HandleTrue, true
		}
		return "", false
	case "onFalse":
		if kind == graph.KindEval {
			return graph.HandleFalse, true
		}
		return "", false
	default:
		return "", false
	}
}

// transitionField is the inverse of transitionHandle, used by the
// generator to pick the field name for an edge's handle.
func transitionField(handle string) (string, bool) {
	switch handle {
	case graph.HandleDefault:
		return "next", true
	case graph.HandleError:
		return "onError", true
	case graph.HandleTrue:
		return "onTrue", true
	case graph.HandleFalse:
		return "onFalse", true
	default:
		return "", false
	}
}

// applyConfigField assigns one node field into the kind-specific config.
// Unrecognized keys are preserved in the config's Extra map and reported
// as warnings so that hand-authored extensions survive a round trip.
func (p *parser) applyConfigField(nodeID string, cfg graph.NodeConfig, f objectField) *ParseError {
	switch c := cfg.(type) {
	case *graph.AgentConfig:
		switch f.key {
		case "role":
			return assignString(&c.Role, nodeID, f)
		case "prompt":
			return assignString(&c.Prompt, nodeID, f)
		case "model":
			return assignString(&c.Model, nodeID, f)
		case "tools":
			return assignStrings(&c.Tools, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.CommandConfig:
		switch f.key {
		case "command":
			return assignString(&c.Command, nodeID, f)
		case "args":
			return assignStrings(&c.Args, nodeID, f)
		case "dir":
			return assignString(&c.Dir, nodeID, f)
		case "env":
			return assignStringMap(&c.Env, nodeID, f)
		case "timeout_seconds":
			return assignInt(&c.TimeoutSeconds, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.SlashCommandConfig:
		switch f.key {
		case "command":
			return assignString(&c.Command, nodeID, f)
		case "args":
			return assignString(&c.Args, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.EvalConfig:
		switch f.key {
		case "expression":
			return assignString(&c.Expression, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.HTTPConfig:
		switch f.key {
		case "url":
			return assignString(&c.URL, nodeID, f)
		case "method":
			return assignString(&c.Method, nodeID, f)
		case "headers":
			return assignStringMap(&c.Headers, nodeID, f)
		case "body":
			return assignString(&c.Body, nodeID, f)
		case "timeout_seconds":
			return assignInt(&c.TimeoutSeconds, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.LLMConfig:
		switch f.key {
		case "provider":
			return assignString(&c.Provider, nodeID, f)
		case "model":
			return assignString(&c.Model, nodeID, f)
		case "prompt":
			return assignString(&c.Prompt, nodeID, f)
		case "temperature":
			return assignFloat(&c.Temperature, nodeID, f)
		case "max_tokens":
			return assignInt(&c.MaxTokens, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.DynamicAgentConfig:
		switch f.key {
		case "source":
			return assignString(&c.Source, nodeID, f)
		case "model":
			return assignString(&c.Model, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.DynamicCommandConfig:
		switch f.key {
		case "source":
			return assignString(&c.Source, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.ProjectUpdateConfig:
		switch f.key {
		case "project":
			return assignString(&c.Project, nodeID, f)
		case "status":
			return assignString(&c.Status, nodeID, f)
		case "message":
			return assignString(&c.Message, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.CheckoutConfig:
		switch f.key {
		case "repo":
			return assignString(&c.Repo, nodeID, f)
		case "ref":
			return assignString(&c.Ref, nodeID, f)
		case "depth":
			return assignInt(&c.Depth, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	case *graph.EndConfig:
		switch f.key {
		case "message":
			return assignString(&c.Message, nodeID, f)
		default:
			p.keepExtra(&c.Extra, nodeID, cfg.Kind(), f)
		}
	default:
		line, col := f.value.pos()
		return nodeErrorAt(nodeID, line, col, "unsupported config type %T", cfg)
	}
	return nil
}

func (p *parser) keepExtra(extra *map[string]any, nodeID string, kind graph.NodeKind, f objectField) {
	p.warnf("node %s: unknown field %q for kind %s preserved", nodeID, f.key, kind)
	if *extra == nil {
		*extra = make(map[string]any)
	}
	(*extra)[f.key] = toAny(f.value)
}

func wantString(f objectField) (string, *ParseError) {
	s, ok := f.value.(stringValue)
	if !ok {
		line, col := f.value.pos()
		return "", errorAt(line, col, "field %q must be a string", f.key)
	}
	return s.val, nil
}

func wantObject(f objectField) (objectValue, *ParseError) {
	o, ok := f.value.(objectValue)
	if !ok {
		line, col := f.value.pos()
		return objectValue{}, errorAt(line, col, "field %q must be an object", f.key)
	}
	return o, nil
}

func wantNodeString(nodeID string, f objectField) (string, *ParseError) {
	s, ok := f.value.(stringValue)
	if !ok {
		line, col := f.value.pos()
		return "", nodeErrorAt(nodeID, line, col, "field %q must be a string", f.key)
	}
	return s.val, nil
}

func assignString(dst *string, nodeID string, f objectField) *ParseError {
	s, perr := wantNodeString(nodeID, f)
	if perr != nil {
		return perr
	}
	*dst = s
	return nil
}

func assignInt(dst *int, nodeID string, f objectField) *ParseError {
	n, ok := f.value.(numberValue)
	if !ok || !n.isInt {
		line, col := f.value.pos()
		return nodeErrorAt(nodeID, line, col, "field %q must be an integer", f.key)
	}
	*dst = int(n.i)
	return nil
}

func assignFloat(dst *float64, nodeID string, f objectField) *ParseError {
	n, ok := f.value.(numberValue)
	if !ok {
		line, col := f.value.pos()
		return nodeErrorAt(nodeID, line, col, "field %q must be a number", f.key)
	}
	if n.isInt {
		*dst = float64(n.i)
	} else {
		*dst = n.f
	}
	return nil
}

func assignStrings(dst *[]string, nodeID string, f objectField) *ParseError {
	arr, ok := f.value.(arrayValue)
	if !ok {
		line, col := f.value.pos()
		return nodeErrorAt(nodeID, line, col, "field %q must be an array of strings", f.key)
	}
	out := make([]string, 0, len(arr.items))
	for _, item := range arr.items {
		s, ok := item.(stringValue)
		if !ok {
			line, col := item.pos()
			return nodeErrorAt(nodeID, line, col, "field %q must contain only strings", f.key)
		}
		out = append(out, s.val)
	}
	*dst = out
	return nil
}

func assignStringMap(dst *map[string]string, nodeID string, f objectField) *ParseError {
	obj, ok := f.value.(objectValue)
	if !ok {
		line, col := f.value.pos()
		return nodeErrorAt(nodeID, line, col, "field %q must be an object of strings", f.key)
	}
	out := make(map[string]string, len(obj.fields))
	for _, field := range obj.fields {
		s, ok := field.value.(stringValue)
		if !ok {
			line, col := field.value.pos()
			return nodeErrorAt(nodeID, line, col, "field %q must contain only string values", f.key)
		}
		out[field.key] = s.val
	}
	*dst = out
	return nil
}
