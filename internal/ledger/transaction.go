package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TagUUID is the reserved metadata tag whose value keys the checksum
// registry; at most one live transaction may claim a given value.
const TagUUID = "UUID"

var (
	ErrTooFewPostings = errors.New("transaction must have at least two postings")
	ErrUnbalanced     = errors.New("transaction does not balance")
	ErrMultipleElided = errors.New("only one posting may have a null amount")
	ErrMixedCommodity = errors.New("null-amount posting cannot absorb more than one commodity")
)

// Transaction is an ordered, balanced group of postings recorded on a date,
// with a payee and metadata. The parser creates it; the journal owns it
// after a successful commit. Journal is a non-owning back-reference, set on
// commit and cleared on removal or rejection.
type Transaction struct {
	Item

	ID       string
	Date     time.Time
	Code     string
	Payee    string
	Postings []*Posting
	Journal  *Journal
}

// NewTransaction creates an empty transaction for date and payee.
func NewTransaction(date time.Time, payee string) *Transaction {
	return &Transaction{ID: uuid.NewString(), Date: date, Payee: payee}
}

// AddPosting appends post and takes ownership of it.
func (t *Transaction) AddPosting(post *Posting) {
	post.Xact = t
	t.Postings = append(t.Postings, post)
}

// Env implements eval.Scope: payee, code, date, clearing state and tags.
func (t *Transaction) Env() map[string]any {
	tags := make(map[string]string, t.Tags.Len())
	for _, tag := range t.Tags.All() {
		if tag.Value != nil {
			tags[tag.Key] = *tag.Value
		} else {
			tags[tag.Key] = ""
		}
	}
	return map[string]any{
		"payee":   t.Payee,
		"code":    t.Code,
		"date":    t.Date.Format("2006-01-02"),
		"state":   t.State.String(),
		"cleared": t.State == Cleared,
		"pending": t.State == Pending,
		"tags":    tags,
	}
}

// Finalize balances the transaction: per commodity, the posted amounts must
// sum to zero, with at most one elided (nil-amount) posting absorbing the
// remainder. When the owning journal has a bucket account, a lone posting
// gains an elided balancing posting against the bucket first.
func (t *Transaction) Finalize() error {
	if len(t.Postings) == 1 && t.Journal != nil && t.Journal.Bucket != nil {
		t.AddPosting(NewPosting(t.Journal.Bucket))
	}
	if len(t.Postings) < 2 {
		return ErrTooFewPostings
	}

	sums := make(map[string]decimal.Decimal)
	var elided *Posting
	for _, post := range t.Postings {
		if post.Amount == nil {
			if elided != nil {
				return ErrMultipleElided
			}
			elided = post
			continue
		}
		sums[post.Commodity] = sums[post.Commodity].Add(*post.Amount)
	}

	var residue []string
	for commodity, sum := range sums {
		if !sum.IsZero() {
			residue = append(residue, commodity)
		}
	}
	sort.Strings(residue)

	if elided == nil {
		if len(residue) > 0 {
			return fmt.Errorf("%w: %s off by %s", ErrUnbalanced,
				residue[0], sums[residue[0]].String())
		}
		return nil
	}

	switch len(residue) {
	case 0:
		elided.SetAmount(decimal.Zero, "")
	case 1:
		elided.SetAmount(sums[residue[0]].Neg(), residue[0])
	default:
		return ErrMixedCommodity
	}
	return nil
}

// Valid recursively checks structural sanity: a legal clearing state and
// postings that point back at this transaction and pass their own checks.
func (t *Transaction) Valid() bool {
	if t.State < Uncleared || t.State > Cleared {
		return false
	}
	for _, post := range t.Postings {
		if post.Xact != t || !post.Valid() {
			return false
		}
	}
	return true
}

// HasXDataDeep reports whether the transaction or any of its postings
// carries computed state.
func (t *Transaction) HasXDataDeep() bool {
	if t.HasXData() {
		return true
	}
	for _, post := range t.Postings {
		if post.HasXData() {
			return true
		}
	}
	return false
}

// ClearXDataDeep drops computed state from the transaction and its postings.
func (t *Transaction) ClearXDataDeep() {
	t.ClearXData()
	for _, post := range t.Postings {
		post.ClearXData()
	}
}
