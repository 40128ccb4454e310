package ledger

import (
	"fmt"
	"log/slog"

	"github.com/finbooks/ledgercore/internal/apperrors"
	"github.com/finbooks/ledgercore/internal/eval"
)

// CheckingStyle decides how a miss against a knowledge set is resolved.
type CheckingStyle int

const (
	// CheckPermissive silently leaves unknown entities unknown.
	CheckPermissive CheckingStyle = iota
	// CheckWarning logs a non-fatal advisory and continues.
	CheckWarning
	// CheckError fails ingestion with a parse error.
	CheckError
)

// ObservationContext is where an entity was observed: a bare declaration
// directive, or a transaction or posting being ingested. It is a sealed sum
// type; exactly the three variants below exist.
type ObservationContext interface {
	observation() (state ClearingState, declaration bool)
}

// Declaration marks an explicit directive with no owning record.
type Declaration struct{}

func (Declaration) observation() (ClearingState, bool) { return Uncleared, true }

// InTransaction marks an observation made while ingesting a transaction.
type InTransaction struct{ Xact *Transaction }

func (c InTransaction) observation() (ClearingState, bool) { return c.Xact.State, false }

// InPosting marks an observation made while ingesting a posting.
type InPosting struct{ Post *Posting }

func (c InPosting) observation() (ClearingState, bool) { return c.Post.EffectiveState(), false }

// contextScope returns the evaluation scope owned by the context's record,
// nil for declarations.
func contextScope(ctx ObservationContext) eval.Scope {
	switch c := ctx.(type) {
	case InTransaction:
		return c.Xact
	case InPosting:
		return c.Post
	default:
		return nil
	}
}

// checkKnown is the single decision rule shared by accounts, commodities,
// metadata tags and (when enabled) payees. Only the knowledge predicate, the
// mutator and the noun in the message differ per kind.
//
// Declarations always mark the entity known and, under force checking, lock
// the kind's knowledge set. A cleared or pending record counts as an
// implicit declaration unless the kind is locked. Everything else falls
// through to the journal-wide checking style.
func (j *Journal) checkKnown(ctx ObservationContext, location, noun, name string,
	known bool, mark func(), fixed *bool) error {
	if known {
		return nil
	}
	state, declaration := ctx.observation()
	switch {
	case declaration:
		if j.ForceChecking {
			*fixed = true
		}
		mark()
	case !*fixed && state != Uncleared:
		mark()
	case j.CheckingStyle == CheckWarning:
		j.logger().Warn(fmt.Sprintf("unknown %s %q", noun, name),
			slog.String("location", location))
	case j.CheckingStyle == CheckError:
		return fmt.Errorf("%w: %sunknown %s %q", apperrors.ErrParse, location, noun, name)
	}
	return nil
}
