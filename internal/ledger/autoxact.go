package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finbooks/ledgercore/internal/eval"
)

// AutoPosting is one template line of an automated transaction. Either a
// fixed Amount/Commodity pair or a Multiplier of the matched posting's
// amount is set, never both.
type AutoPosting struct {
	Account    *Account
	Amount     *decimal.Decimal
	Commodity  string
	Multiplier *decimal.Decimal
}

// AutomatedTransaction is a predicate plus a template of postings, applied
// read-only to every finalized transaction during extension.
type AutomatedTransaction struct {
	Item

	Predicate *eval.Predicate
	Postings  []*AutoPosting
	Journal   *Journal
}

// NewAutomatedTransaction builds an automated transaction around predicate.
func NewAutomatedTransaction(predicate *eval.Predicate) *AutomatedTransaction {
	return &AutomatedTransaction{Predicate: predicate}
}

// AddPosting appends a template posting.
func (a *AutomatedTransaction) AddPosting(post *AutoPosting) {
	a.Postings = append(a.Postings, post)
}

// ExtendTransaction evaluates the predicate against each of xact's postings
// and, for every match, appends the template postings. Multiplier templates
// scale the matched posting's amount and inherit its commodity.
func (a *AutomatedTransaction) ExtendTransaction(xact *Transaction) error {
	var matched []*Posting
	for _, post := range xact.Postings {
		ok, err := a.Predicate.Eval(post)
		if err != nil {
			return fmt.Errorf("automated transaction predicate: %w", err)
		}
		if ok {
			matched = append(matched, post)
		}
	}

	for _, initial := range matched {
		for _, tmpl := range a.Postings {
			derived := NewPosting(tmpl.Account)
			derived.State = initial.State
			switch {
			case tmpl.Multiplier != nil:
				if initial.Amount == nil {
					return fmt.Errorf("automated transaction: matched posting for %s has no amount to scale", tmpl.Account.FullName())
				}
				derived.SetAmount(initial.Amount.Mul(*tmpl.Multiplier), initial.Commodity)
			case tmpl.Amount != nil:
				derived.SetAmount(*tmpl.Amount, tmpl.Commodity)
			}
			xact.AddPosting(derived)
		}
	}
	return nil
}

// PeriodicTransaction is stored for lifecycle and validation purposes only;
// entry generation from the period expression happens elsewhere.
type PeriodicTransaction struct {
	Item

	Period   string
	Postings []*Posting
	Journal  *Journal
}
