// Package rules loads a declarative YAML rules file describing account
// aliases, payee rewrites, Unknown-account routing, metadata checks and
// automated transactions, and applies it to a journal before loading.
package rules

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/finbooks/ledgercore/internal/eval"
	"github.com/finbooks/ledgercore/internal/ledger"
)

// CheckRule registers a metadata check: kind "assert" fails ingestion on a
// false predicate, "warn" logs and continues.
type CheckRule struct {
	Tag  string `yaml:"tag"`
	Expr string `yaml:"expr"`
	Kind string `yaml:"kind"`
}

// RouteRule substitutes an account for the Unknown sentinel when the payee
// matches the pattern.
type RouteRule struct {
	Pattern string `yaml:"pattern"`
	Account string `yaml:"account"`
}

// PayeeRule rewrites matching payee names to a canonical form.
type PayeeRule struct {
	Pattern string `yaml:"pattern"`
	Payee   string `yaml:"payee"`
}

// PostingRule is one template line of an automated transaction. Amount and
// Multiplier are mutually exclusive.
type PostingRule struct {
	Account    string  `yaml:"account"`
	Amount     *string `yaml:"amount"`
	Commodity  string  `yaml:"commodity"`
	Multiplier *string `yaml:"multiplier"`
}

// AutomatedRule declares an automated transaction: a predicate and its
// template postings.
type AutomatedRule struct {
	If       string        `yaml:"if"`
	Postings []PostingRule `yaml:"postings"`
}

// File is the complete rules document.
type File struct {
	Aliases       map[string]string `yaml:"aliases"`
	Payees        []PayeeRule       `yaml:"payees"`
	UnknownRoutes []RouteRule       `yaml:"unknown_accounts"`
	Checks        []CheckRule       `yaml:"checks"`
	Automated     []AutomatedRule   `yaml:"automated"`
}

// Load reads and decodes a rules file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return &f, nil
}

// Apply registers everything the file declares on j. Accounts named by the
// rules are created in the journal's tree as needed.
func (f *File) Apply(j *ledger.Journal) error {
	for name, target := range f.Aliases {
		j.AddAlias(name, j.FindAccount(target, true))
	}
	for _, rule := range f.Payees {
		if err := j.AddPayeeMapping(rule.Pattern, rule.Payee); err != nil {
			return err
		}
	}
	for _, rule := range f.UnknownRoutes {
		if err := j.AddPayeeRoute(rule.Pattern, j.FindAccount(rule.Account, true)); err != nil {
			return err
		}
	}
	for _, rule := range f.Checks {
		pred, err := eval.Compile(rule.Expr)
		if err != nil {
			return fmt.Errorf("check for tag %q: %w", rule.Tag, err)
		}
		kind := ledger.ExprAssertion
		switch rule.Kind {
		case "", "assert":
		case "warn":
			kind = ledger.ExprWarning
		default:
			return fmt.Errorf("check for tag %q: unknown kind %q", rule.Tag, rule.Kind)
		}
		j.AddTagCheck(rule.Tag, pred, kind)
	}
	for i, rule := range f.Automated {
		auto, err := buildAutomated(j, rule)
		if err != nil {
			return fmt.Errorf("automated rule %d: %w", i, err)
		}
		j.AddAutomatedTransaction(auto)
	}
	return nil
}

func buildAutomated(j *ledger.Journal, rule AutomatedRule) (*ledger.AutomatedTransaction, error) {
	pred, err := eval.Compile(rule.If)
	if err != nil {
		return nil, err
	}
	auto := ledger.NewAutomatedTransaction(pred)
	for _, p := range rule.Postings {
		tmpl := &ledger.AutoPosting{
			Account:   j.FindAccount(p.Account, true),
			Commodity: p.Commodity,
		}
		switch {
		case p.Amount != nil && p.Multiplier != nil:
			return nil, fmt.Errorf("posting for %q: amount and multiplier are mutually exclusive", p.Account)
		case p.Amount != nil:
			amount, err := decimal.NewFromString(*p.Amount)
			if err != nil {
				return nil, fmt.Errorf("posting for %q: %w", p.Account, err)
			}
			tmpl.Amount = &amount
		case p.Multiplier != nil:
			mult, err := decimal.NewFromString(*p.Multiplier)
			if err != nil {
				return nil, fmt.Errorf("posting for %q: %w", p.Account, err)
			}
			tmpl.Multiplier = &mult
		default:
			return nil, fmt.Errorf("posting for %q: amount or multiplier required", p.Account)
		}
		auto.AddPosting(tmpl)
	}
	return auto, nil
}
