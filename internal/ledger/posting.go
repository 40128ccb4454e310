package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Posting is one account/amount line within a transaction. It belongs to
// exactly one transaction and references exactly one account; the account
// holds no back-reference to it.
type Posting struct {
	Item

	ID      string
	Xact    *Transaction
	Account *Account

	// Amount is nil while elided; Finalize resolves it.
	Amount    *decimal.Decimal
	Commodity string
}

// NewPosting creates a posting against account with no amount yet.
func NewPosting(account *Account) *Posting {
	return &Posting{ID: uuid.NewString(), Account: account}
}

// SetAmount fixes the posting's amount and commodity.
func (p *Posting) SetAmount(amount decimal.Decimal, commodity string) {
	p.Amount = &amount
	p.Commodity = commodity
}

// EffectiveState returns the posting's own state unless it is uncleared, in
// which case the owning transaction's state applies.
func (p *Posting) EffectiveState() ClearingState {
	if p.State != Uncleared || p.Xact == nil {
		return p.State
	}
	return p.Xact.State
}

// Env implements eval.Scope: the owning transaction's bindings plus the
// posting's account, amount and commodity, and its merged tags.
func (p *Posting) Env() map[string]any {
	var env map[string]any
	if p.Xact != nil {
		env = p.Xact.Env()
	} else {
		env = make(map[string]any)
	}
	if p.Account != nil {
		env["account"] = p.Account.FullName()
	} else {
		env["account"] = ""
	}
	if p.Amount != nil {
		env["amount"] = p.Amount.InexactFloat64()
	}
	env["commodity"] = p.Commodity
	env["cleared"] = p.EffectiveState() == Cleared
	env["pending"] = p.EffectiveState() == Pending
	tags, _ := env["tags"].(map[string]string)
	if tags == nil {
		tags = make(map[string]string)
	} else {
		merged := make(map[string]string, len(tags))
		for k, v := range tags {
			merged[k] = v
		}
		tags = merged
	}
	for _, tag := range p.Tags.All() {
		if tag.Value != nil {
			tags[tag.Key] = *tag.Value
		} else {
			tags[tag.Key] = ""
		}
	}
	env["tags"] = tags
	return env
}

// Valid checks that the posting is wired into its owning transaction and
// references an account.
func (p *Posting) Valid() bool {
	if p.Xact == nil || p.Account == nil {
		return false
	}
	for _, post := range p.Xact.Postings {
		if post == p {
			return true
		}
	}
	return false
}
