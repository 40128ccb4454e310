// Package parse reads a compact plain-text journal format and drives the
// journal's registration gateways as it recognizes each construct. It
// covers dated transactions with postings and tag comments, automated
// transactions, and the account, alias, bucket, commodity, tag, assert and
// check directives.
package parse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbooks/ledgercore/internal/apperrors"
	"github.com/finbooks/ledgercore/internal/eval"
	"github.com/finbooks/ledgercore/internal/ledger"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02"}

// Reader is the textual journal parser. It is stateless; one Reader may
// serve any number of Parse calls.
type Reader struct{}

// NewReader returns a Reader implementing ledger.Parser.
func NewReader() *Reader { return &Reader{} }

var _ ledger.Parser = (*Reader)(nil)

// Parse reads journal text from in and commits what it recognizes to j,
// returning the number of transactions ingested.
func (r *Reader) Parse(in io.Reader, j *ledger.Journal, master *ledger.Account, scope eval.Scope, path string) (int, error) {
	p := &parser{journal: j, master: master, scope: scope, path: path}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line++
		if err := p.readLine(scanner.Text()); err != nil {
			return p.count, err
		}
	}
	if err := scanner.Err(); err != nil {
		return p.count, fmt.Errorf("reading journal %q: %w", path, err)
	}
	if err := p.finishBlock(); err != nil {
		return p.count, err
	}
	return p.count, nil
}

type parser struct {
	journal *ledger.Journal
	master  *ledger.Account
	scope   eval.Scope
	path    string
	line    int
	count   int

	xact     *ledger.Transaction
	auto     *ledger.AutomatedTransaction
	lastPost *ledger.Posting
}

func (p *parser) location() string {
	return ledger.Position{File: p.path, Line: p.line}.Location()
}

func (p *parser) parseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s%s", apperrors.ErrParse, p.location(), fmt.Sprintf(format, args...))
}

func (p *parser) readLine(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return p.finishBlock()
	}
	first := raw[0]
	switch {
	case first == ';' || first == '#':
		return nil
	case first == ' ' || first == '\t':
		return p.readIndented(strings.TrimSpace(raw))
	case first == '=':
		if err := p.finishBlock(); err != nil {
			return err
		}
		return p.beginAutomated(strings.TrimSpace(raw[1:]))
	case first >= '0' && first <= '9':
		if err := p.finishBlock(); err != nil {
			return err
		}
		return p.beginTransaction(raw)
	default:
		if err := p.finishBlock(); err != nil {
			return err
		}
		return p.readDirective(raw)
	}
}

// finishBlock commits the transaction or automated transaction under
// construction, if any.
func (p *parser) finishBlock() error {
	if p.auto != nil {
		p.journal.AddAutomatedTransaction(p.auto)
		p.auto = nil
	}
	if p.xact == nil {
		return nil
	}
	xact := p.xact
	p.xact = nil
	p.lastPost = nil
	added, err := p.journal.AddTransaction(xact)
	if err != nil {
		// Policy and assertion errors already carry the offending item's
		// location; only prefix errors that do not.
		if errors.Is(err, apperrors.ErrParse) {
			return err
		}
		return fmt.Errorf("%s%w", ledger.Position{File: p.path, Line: xact.Pos.Line}.Location(), err)
	}
	if !added {
		p.journal.Logger().Warn("transaction not added to journal",
			slog.String("payee", xact.Payee),
			slog.String("location", ledger.Position{File: p.path, Line: xact.Pos.Line}.Location()))
		return nil
	}
	p.count++
	return nil
}

func (p *parser) beginTransaction(raw string) error {
	fields := strings.Fields(raw)
	date, err := parseDate(fields[0])
	if err != nil {
		return p.parseError("invalid date %q", fields[0])
	}
	rest := fields[1:]

	state := ledger.Uncleared
	if len(rest) > 0 {
		switch rest[0] {
		case "*":
			state = ledger.Cleared
			rest = rest[1:]
		case "!":
			state = ledger.Pending
			rest = rest[1:]
		}
	}

	code := ""
	if len(rest) > 0 && strings.HasPrefix(rest[0], "(") && strings.HasSuffix(rest[0], ")") {
		code = strings.Trim(rest[0], "()")
		rest = rest[1:]
	}

	xact := ledger.NewTransaction(date, strings.Join(rest, " "))
	xact.State = state
	xact.Code = code
	xact.Pos = ledger.Position{File: p.path, Line: p.line}

	payee, err := p.journal.RegisterPayee(xact.Payee, xact, p.location())
	if err != nil {
		return err
	}
	xact.Payee = payee

	p.xact = xact
	return nil
}

func (p *parser) beginAutomated(predicate string) error {
	if predicate == "" {
		return p.parseError("automated transaction requires a predicate")
	}
	pred, err := eval.Compile(predicate)
	if err != nil {
		return p.parseError("automated transaction: %v", err)
	}
	auto := ledger.NewAutomatedTransaction(pred)
	auto.Pos = ledger.Position{File: p.path, Line: p.line}
	p.auto = auto
	return nil
}

func (p *parser) readIndented(line string) error {
	if strings.HasPrefix(line, ";") {
		return p.readNote(strings.TrimSpace(strings.TrimPrefix(line, ";")))
	}
	switch {
	case p.auto != nil:
		return p.readAutoPosting(line)
	case p.xact != nil:
		return p.readPosting(line)
	default:
		return p.parseError("unexpected indented line %q", line)
	}
}

// readNote records a "key: value" tag comment against the most recent
// posting, or against the transaction when no posting has been read yet.
// "key:" with nothing after the colon records a bare tag.
func (p *parser) readNote(note string) error {
	key, rawValue, found := strings.Cut(note, ":")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return nil // plain note, not metadata
	}
	var value *string
	if v := strings.TrimSpace(rawValue); v != "" {
		value = &v
	}
	switch {
	case p.lastPost != nil:
		p.lastPost.SetTag(key, value)
	case p.xact != nil:
		p.xact.SetTag(key, value)
	}
	return nil
}

func (p *parser) readPosting(line string) error {
	state := ledger.Uncleared
	switch {
	case strings.HasPrefix(line, "* "):
		state = ledger.Cleared
		line = strings.TrimSpace(line[2:])
	case strings.HasPrefix(line, "! "):
		state = ledger.Pending
		line = strings.TrimSpace(line[2:])
	}

	name, amountText := splitPostingLine(line)
	post := ledger.NewPosting(nil)
	post.State = state
	post.Pos = ledger.Position{File: p.path, Line: p.line}
	p.xact.AddPosting(post)

	account, err := p.journal.RegisterAccount(name, post, p.location(), p.master)
	if err != nil {
		return err
	}
	post.Account = account

	if amountText != "" {
		amount, commodity, err := parseAmount(amountText)
		if err != nil {
			return p.parseError("invalid amount %q: %v", amountText, err)
		}
		post.SetAmount(amount, commodity)
		if commodity != "" {
			if err := p.journal.RegisterCommodity(commodity, ledger.InPosting{Post: post}, p.location()); err != nil {
				return err
			}
		}
	}

	p.lastPost = post
	return nil
}

// readAutoPosting reads a template line of an automated transaction: an
// account followed by a fixed amount, or by "*N" scaling the matched
// posting's amount.
func (p *parser) readAutoPosting(line string) error {
	name, rest := splitPostingLine(line)
	tmpl := &ledger.AutoPosting{Account: p.master.FindAccount(name, true)}
	switch {
	case rest == "":
		return p.parseError("automated posting for %q requires an amount or multiplier", name)
	case strings.HasPrefix(rest, "*"):
		mult, err := decimal.NewFromString(strings.TrimSpace(rest[1:]))
		if err != nil {
			return p.parseError("invalid multiplier %q: %v", rest, err)
		}
		tmpl.Multiplier = &mult
	default:
		amount, commodity, err := parseAmount(rest)
		if err != nil {
			return p.parseError("invalid amount %q: %v", rest, err)
		}
		tmpl.Amount = &amount
		tmpl.Commodity = commodity
	}
	p.auto.AddPosting(tmpl)
	return nil
}

func (p *parser) readDirective(raw string) error {
	word, rest, _ := strings.Cut(raw, " ")
	rest = strings.TrimSpace(rest)
	switch word {
	case "account":
		_, err := p.journal.RegisterAccount(rest, nil, p.location(), p.master)
		return err
	case "alias":
		name, target, found := strings.Cut(rest, "=")
		if !found {
			return p.parseError("alias directive requires name=account")
		}
		p.journal.AddAlias(strings.TrimSpace(name),
			p.master.FindAccount(strings.TrimSpace(target), true))
		return nil
	case "bucket":
		p.journal.Bucket = p.master.FindAccount(rest, true)
		return nil
	case "commodity":
		return p.journal.RegisterCommodity(rest, ledger.Declaration{}, p.location())
	case "tag":
		return p.journal.RegisterMetadata(rest, nil, ledger.Declaration{}, p.location())
	case "assert", "check":
		return p.evalDirective(word, rest)
	default:
		return p.parseError("unknown directive %q", word)
	}
}

// evalDirective evaluates an expression against the load's scope: "assert"
// failures are fatal, "check" failures log an advisory.
func (p *parser) evalDirective(word, src string) error {
	pred, err := eval.Compile(src)
	if err != nil {
		return p.parseError("%s directive: %v", word, err)
	}
	ok, err := pred.Eval(p.scope)
	if err != nil {
		return p.parseError("%s directive: %v", word, err)
	}
	if ok {
		return nil
	}
	if word == "assert" {
		return p.parseError("assertion failed: %s", src)
	}
	p.journal.Logger().Warn(fmt.Sprintf("check failed: %s", src),
		slog.String("location", p.location()))
	return nil
}

// splitPostingLine separates the account name from the amount column. Two or
// more spaces, or a tab, end the account name; single spaces are part of it.
func splitPostingLine(line string) (account, rest string) {
	for i := 0; i < len(line); i++ {
		if line[i] == '\t' || (line[i] == ' ' && i+1 < len(line) && line[i+1] == ' ') {
			return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i:])
		}
	}
	return strings.TrimSpace(line), ""
}

func parseDate(text string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateLayouts {
		date, err := time.Parse(layout, text)
		if err == nil {
			return date, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// parseAmount reads "12.34 USD", "-12.34" or "$12.34" style amounts,
// returning the commodity symbol when present.
func parseAmount(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "$") || strings.HasPrefix(text, "-$") {
		negative := strings.HasPrefix(text, "-")
		digits := strings.TrimPrefix(strings.TrimPrefix(text, "-"), "$")
		amount, err := decimal.NewFromString(digits)
		if err != nil {
			return decimal.Zero, "", err
		}
		if negative {
			amount = amount.Neg()
		}
		return amount, "$", nil
	}
	number, commodity, _ := strings.Cut(text, " ")
	amount, err := decimal.NewFromString(number)
	if err != nil {
		return decimal.Zero, "", err
	}
	return amount, strings.TrimSpace(commodity), nil
}
