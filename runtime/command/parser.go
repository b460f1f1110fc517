package command

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/opal-lang/msci/core/diag"
	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/expr"
	"github.com/opal-lang/msci/runtime/lexer"
	"github.com/opal-lang/msci/runtime/syntax"
)

// ScriptLookup reports the argument names of a called script. ok is false
// when the script is not known (yet).
type ScriptLookup interface {
	ArgumentNames(script string) (names []string, ok bool)
}

// Parser parses source lines into commands for one target game. The table
// and object snapshots are read-only and may be shared between parsers.
type Parser struct {
	Table   *syntax.Table
	Objects *syntax.Objects
	Game    types.GameVersion
	Scope   Scope        // variable declarations; required
	Scripts ScriptLookup // optional
	Logger  *slog.Logger // optional
}

// line carries the per-line state shared by the parse steps.
type line struct {
	text   string
	number int
	diags  *diag.List
}

func (l *line) addf(kind diag.Kind, start, length int, format string, args ...interface{}) {
	l.diags.Addf(kind, l.number, l.text, start, length, format, args...)
}

func (l *line) addSuggestion(kind diag.Kind, start, length int, suggestion, format string, args ...interface{}) {
	l.diags.Add(diag.Diagnostic{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Line:       l.number,
		Start:      start,
		Length:     length,
		LineText:   l.text,
		Suggestion: suggestion,
	})
}

// ParseLine parses one source line. It always returns a command: lines that
// cannot be parsed yield an Unrecognised command that keeps its decoded
// return value, so branch structure survives the error. Problems are added
// to diags.
func (p *Parser) ParseLine(text string, number int, diags *diag.List) *Command {
	invariant.NotNil(p.Table, "syntax table")
	invariant.NotNil(p.Scope, "variable scope")
	invariant.NotNil(diags, "diagnostics")

	l := &line{text: text, number: number, diags: diags}
	tokens := lexer.Tokenize(text)
	cmd := p.parseTokens(l, tokens)
	cmd.Text = text
	cmd.Line = number
	for _, sub := range cmd.Expansion {
		sub.Line = number
	}

	if p.Logger != nil {
		p.Logger.Debug("parsed line", "line", number, "id", cmd.ID(), "branch", cmd.Branch().String())
	}
	return cmd
}

func (p *Parser) parseTokens(l *line, tokens []lexer.Token) *Command {
	first := tokens[0]
	switch first.Type {
	case lexer.EOF:
		return NewCommand(p.structural(syntax.CmdNOP), l.number)
	case lexer.COMMENT:
		return p.parseComment(l, first)
	case lexer.LABEL:
		s := p.structural(syntax.CmdDefineLabel)
		return NewCommand(s, l.number, Parameter{
			Syntax: s.Params[0],
			Value:  StringValue(first.Text),
			Text:   first.Text,
			Token:  first,
			Ref:    RefLabel,
		})
	}

	rv, rest := parseReturnValue(tokens)
	return p.parseCommand(l, rv, tokens, rest)
}

// parseComment keeps '* <command>' as a commented command when the text
// parses cleanly, and as a plain comment otherwise.
func (p *Parser) parseComment(l *line, tok lexer.Token) *Command {
	inner := shift(lexer.Tokenize(tok.Text), tok.Start+1)
	if t := inner[0].Type; t != lexer.EOF && t != lexer.COMMENT && t != lexer.LABEL {
		probe := &Parser{Table: p.Table, Objects: p.Objects, Game: p.Game, Scope: &recordingScope{}, Scripts: p.Scripts}
		var scratch diag.List
		rv, rest := parseReturnValue(inner)
		cmd := probe.parseCommand(&line{text: l.text, number: l.number, diags: &scratch}, rv, inner, rest)
		if scratch.Empty() && !cmd.IsUnrecognised() && !hasUnresolved(cmd) {
			// declare its variables for real so IDs stay consistent
			cmd = p.parseCommand(l, rv, inner, rest)
			cmd.Commented = true
			return cmd
		}
	}

	s := p.structural(syntax.CmdComment)
	return NewCommand(s, l.number, Parameter{
		Syntax: s.Params[0],
		Value:  StringValue(tok.Text),
		Text:   tok.Text,
		Token:  tok,
	})
}

func hasUnresolved(c *Command) bool {
	for _, params := range [][]Parameter{c.Params, c.VarArgs, c.Terms} {
		for _, param := range params {
			if param.Unresolved {
				return true
			}
		}
	}
	return false
}

// recordingScope hands out throwaway IDs while probing a comment.
type recordingScope struct{ n int }

func (s *recordingScope) Declare(string) int {
	s.n++
	return s.n - 1
}

func shift(tokens []lexer.Token, by int) []lexer.Token {
	for i := range tokens {
		tokens[i].Start += by
		tokens[i].End += by
	}
	return tokens
}

// parseReturnValue strips a return-value prefix: '$x =', 'start', or one of
// the conditional forms. rest is everything after it.
func parseReturnValue(tokens []lexer.Token) (rv ReturnValue, rest []lexer.Token) {
	at := func(i int) lexer.Token {
		if i < len(tokens) {
			return tokens[i]
		}
		return lexer.Token{Type: lexer.EOF}
	}
	keyword := func(i int, word string) bool {
		return at(i).Is(lexer.KEYWORD, word)
	}
	conditional := func(n int, yes, no Conditional) (ReturnValue, []lexer.Token) {
		if keyword(n, "not") {
			return ReturnValue{Kind: ReturnConditional, Cond: no}, tokens[n+1:]
		}
		return ReturnValue{Kind: ReturnConditional, Cond: yes}, tokens[n:]
	}

	switch {
	case at(0).Type == lexer.VARIABLE && at(1).Is(lexer.TEXT, "="):
		return ReturnValue{Kind: ReturnAssign, Variable: at(0).Text}, tokens[2:]
	case keyword(0, "start"):
		return ReturnValue{Kind: ReturnStart}, tokens[1:]
	case keyword(0, "if"):
		return conditional(1, CondIf, CondIfNot)
	case keyword(0, "while"):
		return conditional(1, CondWhile, CondWhileNot)
	case keyword(0, "skip") && keyword(1, "if"):
		return conditional(2, CondSkipIf, CondSkipIfNot)
	case keyword(0, "else") && keyword(1, "if"):
		return conditional(2, CondElseIf, CondElseIfNot)
	}
	return ReturnValue{}, tokens
}

func (p *Parser) parseCommand(l *line, rv ReturnValue, all, rest []lexer.Token) *Command {
	start, length := span(all, rest)
	prefixStart, prefixLen := prefixSpan(all, rest)

	m := p.Table.Match(rest, p.Game)
	if m.Syntax.IsUnrecognised() {
		if m.Unsupported == nil && expressionCandidate(rv, rest) {
			return p.parseExpression(l, rv, rest, prefixStart, prefixLen)
		}
		cmd := &Command{Syntax: syntax.Unrecognised, Return: rv}
		for _, tok := range rest {
			if tok.Unrecognised {
				l.addf(diag.LexicalAmbiguity, tok.Start, tok.Len(), "Unrecognised text '%s'", tok.Text)
				return cmd
			}
		}
		if m.Unsupported != nil {
			l.addf(diag.SyntaxMatch, start, length, "Command not supported by %s", p.Game)
			return cmd
		}
		restText := ""
		if length > 0 {
			restText = l.text[start : start+length]
		}
		l.addSuggestion(diag.SyntaxMatch, start, length, p.Table.Suggest(restText, p.Game), "Unrecognised command")
		return cmd
	}

	s := m.Syntax
	cmd := &Command{
		Syntax: s,
		Params: make([]Parameter, len(s.Params)),
		Order:  PhysicalOrder,
		Return: rv,
	}
	p.checkReturnValue(l, cmd, prefixStart, prefixLen)

	for i, tok := range m.Slots {
		param := s.Params[m.Params[i]]
		cmd.Params[param.Physical] = p.parameter(l, tok, param)
	}
	if s.VarArgs {
		p.parseVarArgs(l, cmd, m.Rest)
	}
	return cmd
}

// span returns the character range of rest within the line, or of the
// whole token run when rest is empty.
func span(all, rest []lexer.Token) (start, length int) {
	toks := rest
	if len(trimEOF(toks)) == 0 {
		toks = all
	}
	toks = trimEOF(toks)
	if len(toks) == 0 {
		return 0, 0
	}
	return toks[0].Start, toks[len(toks)-1].End - toks[0].Start
}

// prefixSpan returns the character range of the return-value prefix.
func prefixSpan(all, rest []lexer.Token) (start, length int) {
	n := len(all) - len(rest)
	if n <= 0 {
		return 0, 0
	}
	return all[0].Start, all[n-1].End - all[0].Start
}

func trimEOF(tokens []lexer.Token) []lexer.Token {
	if n := len(tokens); n > 0 && tokens[n-1].Type == lexer.EOF {
		return tokens[:n-1]
	}
	return tokens
}

// checkReturnValue validates the prefix against the syntax and fills in the
// return-value parameter.
func (p *Parser) checkReturnValue(l *line, cmd *Command, prefixStart, prefixLen int) {
	s := cmd.Syntax
	retvar, ok := s.RetVar()

	if !ok {
		switch cmd.Return.Kind {
		case ReturnAssign:
			l.addf(diag.SyntaxMatch, prefixStart, prefixLen, "Command does not return a value")
		case ReturnStart:
			l.addf(diag.SyntaxMatch, prefixStart, prefixLen, "Command cannot be started concurrently")
		case ReturnConditional:
			l.addf(diag.SyntaxMatch, prefixStart, prefixLen, "Command cannot be used as a conditional")
		}
		return
	}

	if cmd.Return.Kind == ReturnNone {
		cmd.Return.Kind = ReturnDiscard
	}
	if cmd.Return.Kind == ReturnStart && !s.Execution.AllowsStart() {
		l.addf(diag.SyntaxMatch, prefixStart, prefixLen, "Command cannot be started concurrently")
	}
	cmd.Params[retvar.Physical] = p.returnParameter(retvar, cmd.Return)
}

func (p *Parser) returnParameter(retvar syntax.Param, rv ReturnValue) Parameter {
	varID := -1
	if rv.Kind == ReturnAssign {
		varID = p.Scope.Declare(rv.Variable)
	}
	return Parameter{
		Syntax: retvar,
		Value:  IntValue(types.DTInteger, rv.Encode(varID, 0)),
		Text:   rv.Prefix(),
	}
}

// parameter resolves and type-checks one slot.
func (p *Parser) parameter(l *line, tok lexer.Token, param syntax.Param) Parameter {
	if tok.Unrecognised {
		l.addf(diag.LexicalAmbiguity, tok.Start, tok.Len(), "Unrecognised text '%s'", tok.Text)
		return Parameter{Syntax: param, Token: tok, Text: tok.Text, Value: Value{Type: types.DTUnknown, Str: tok.Text}}
	}
	out, problem := p.resolve(tok, param)
	if problem != "" {
		l.addf(diag.SyntaxMatch, tok.Start, tok.Len(), "%s", problem)
		return out
	}
	// unresolved references are reported by verification with suggestions
	if !out.Unresolved && !param.Type.Accepts(out.Value.Type) {
		l.addf(diag.SyntaxMatch, tok.Start, tok.Len(), "'%s' is not a valid %s parameter", out.Text, param.Type)
	}
	return out
}

// expressionCandidate reports whether an unmatched line should be parsed as
// an expression: nothing but operands, operators and brackets, and either a
// value-taking prefix or at least one operator or bracket.
func expressionCandidate(rv ReturnValue, rest []lexer.Token) bool {
	rest = trimEOF(rest)
	if len(rest) == 0 {
		return false
	}
	structural := false
	for _, tok := range rest {
		switch {
		case tok.IsOperand():
		case tok.IsOperator(), tok.Type == lexer.LBRACKET, tok.Type == lexer.RBRACKET:
			structural = true
		default:
			return false
		}
	}
	return structural || rv.Kind == ReturnAssign || rv.Kind == ReturnConditional
}

func (p *Parser) parseExpression(l *line, rv ReturnValue, rest []lexer.Token, prefixStart, prefixLen int) *Command {
	s := p.structural(syntax.CmdExpression)
	cmd := &Command{Syntax: syntax.Unrecognised, Return: rv}

	parsed, err := expr.Parse(rest)
	if err != nil {
		if e, ok := err.(*expr.Error); ok {
			l.addf(diag.ExpressionSyntax, e.Offset, e.Length, "%s", e.Message)
		} else {
			l.addf(diag.ExpressionSyntax, 0, len(l.text), "%s", err.Error())
		}
		return cmd
	}

	if rv.Kind == ReturnStart {
		l.addf(diag.SyntaxMatch, prefixStart, prefixLen, "Command cannot be started concurrently")
	}
	if rv.Kind == ReturnNone {
		rv.Kind = ReturnDiscard
	}

	cmd.Syntax = s
	cmd.Return = rv
	cmd.Order = PhysicalOrder
	cmd.Expression = parsed
	cmd.Params = make([]Parameter, len(s.Params))

	retvar, _ := s.RetVar()
	var body syntax.Param
	for _, param := range s.Params {
		if param.Physical == retvar.Physical {
			cmd.Params[param.Physical] = p.returnParameter(param, rv)
		} else {
			body = param
		}
	}
	start, length := span(rest, rest)
	cmd.Params[body.Physical] = Parameter{
		Syntax: body,
		Value:  StringValue(l.text[start : start+length]),
		Text:   l.text[start : start+length],
	}

	for _, item := range parsed.Postfix {
		if item.Kind == expr.ItemOperand {
			cmd.Terms = append(cmd.Terms, p.parameter(l, item.Token, syntax.Param{Type: types.ParamExpression}))
			continue
		}
		cmd.Terms = append(cmd.Terms, Parameter{
			Syntax: syntax.Param{Type: types.ParamExpression},
			Value:  IntValue(types.DTOperator, item.Op.Code()),
			Text:   item.Op.Spelling(p.Game),
			Token:  item.Token,
		})
	}
	return cmd
}

// parseVarArgs handles the trailing arguments of variable-argument syntaxes.
func (p *Parser) parseVarArgs(l *line, cmd *Command, rest []lexer.Token) {
	rest = trimEOF(rest)
	switch cmd.ID() {
	case syntax.CmdCallScript:
		p.parseScriptArgs(l, cmd, rest)
	case syntax.CmdDim:
		p.parseList(l, cmd, rest)
		p.expandDim(cmd)
	default:
		p.parseList(l, cmd, rest)
	}
}

// parseList reads comma-separated (or space-separated) values.
func (p *Parser) parseList(l *line, cmd *Command, rest []lexer.Token) {
	for _, tok := range rest {
		if tok.Is(lexer.TEXT, ",") {
			continue
		}
		cmd.VarArgs = append(cmd.VarArgs, p.parameter(l, tok, p.varArgParam(cmd, len(cmd.VarArgs))))
	}
}

func (p *Parser) varArgParam(cmd *Command, i int) syntax.Param {
	n := len(cmd.Syntax.Params)
	return syntax.Param{Physical: n + 1 + i, Display: n + i, Type: types.ParamValue}
}

// parseScriptArgs reads 'name=value' pairs of a script call. Names are
// checked against the called script's arguments when they are known; bare
// values get generic names.
func (p *Parser) parseScriptArgs(l *line, cmd *Command, rest []lexer.Token) {
	script := ""
	for _, param := range cmd.Params {
		if param.Syntax.Usage == types.UsageScriptName {
			script = param.Value.Str
		}
	}
	var known []string
	cached := false
	if p.Scripts != nil && script != "" {
		known, cached = p.Scripts.ArgumentNames(script)
	}

	for i := 0; i < len(rest); {
		var nameTok lexer.Token
		if i+1 < len(rest) && rest[i].Type == lexer.TEXT && rest[i+1].Is(lexer.TEXT, "=") {
			nameTok = rest[i]
			if i+2 == len(rest) {
				l.addf(diag.SyntaxMatch, nameTok.Start, rest[i+1].End-nameTok.Start,
					"Missing value for argument '%s'", nameTok.Text)
				return
			}
			i += 2
		}
		tok := rest[i]
		i++

		n := len(cmd.VarArgs)
		arg := p.parameter(l, tok, p.varArgParam(cmd, n))
		arg.Name = nameTok.Text
		if arg.Name == "" {
			arg.Name = ArgumentName(n)
		}

		if cached {
			switch {
			case n >= len(known):
				l.addf(diag.SyntaxMatch, tok.Start, tok.Len(), "Script '%s' takes %d arguments", script, len(known))
			case nameTok.Text != "" && nameTok.Text != known[n]:
				l.addSuggestion(diag.UnresolvedReference, nameTok.Start, nameTok.Len(), syntax.Closest(nameTok.Text, known),
					"Script '%s' has no argument '%s' at position %d", script, nameTok.Text, n+1)
			case nameTok.Text == "":
				arg.Name = known[n]
			}
		}
		cmd.VarArgs = append(cmd.VarArgs, arg)
	}
}

// ArgumentName is the generic name of the i-th (0-based) script argument,
// used when the called script is not known.
func ArgumentName(i int) string {
	return fmt.Sprintf("argument%d", i+1)
}

// expandDim expands 'dim $a = v1, v2, ...' into an array allocation and one
// element assignment per value.
func (p *Parser) expandDim(cmd *Command) {
	array := cmd.Params[0]
	alloc := p.structural(syntax.CmdArrayAlloc)
	set := p.structural(syntax.CmdSetArrayValue)

	rv := ReturnValue{Kind: ReturnAssign, Variable: strings.TrimPrefix(array.Text, "$")}
	sub := &Command{Syntax: alloc, Params: make([]Parameter, len(alloc.Params)), Order: PhysicalOrder, Return: rv}
	for _, param := range alloc.Params {
		if param.Type == types.ParamRetVar {
			sub.Params[param.Physical] = p.returnParameter(param, rv)
			continue
		}
		sub.Params[param.Physical] = IntParameter(param, len(cmd.VarArgs))
	}
	cmd.Expansion = append(cmd.Expansion, sub)

	for i, value := range cmd.VarArgs {
		elem := &Command{Syntax: set, Params: make([]Parameter, len(set.Params)), Order: PhysicalOrder}
		for _, param := range set.Params {
			switch param.Type {
			case types.ParamVariable:
				elem.Params[param.Physical] = Parameter{Syntax: param, Value: array.Value, Text: array.Text, Token: array.Token}
			case types.ParamNumber:
				elem.Params[param.Physical] = IntParameter(param, i)
			default:
				v := value
				v.Syntax = param
				elem.Params[param.Physical] = v
			}
		}
		cmd.Expansion = append(cmd.Expansion, elem)
	}
}

// IntParameter returns an integer parameter for a slot.
func IntParameter(param syntax.Param, n int) Parameter {
	return Parameter{Syntax: param, Value: IntValue(types.DTInteger, n), Text: fmt.Sprint(n)}
}

// structural returns a syntax the compiler itself relies on. Tables are
// checked for these when loaded, so a missing one is a defect.
func (p *Parser) structural(id int) *syntax.Syntax {
	s := p.Table.Get(id)
	invariant.Invariant(!s.IsUnrecognised(), "syntax table has no command %d", id)
	return s
}
