package ledger

import (
	"fmt"
	"log/slog"

	"github.com/finbooks/ledgercore/internal/apperrors"
	"github.com/finbooks/ledgercore/internal/eval"
)

// RegisterAccount resolves name for a posting being ingested (post may be
// nil for a bare declaration) and applies the account knowledge policy.
// Resolution order: alias table, then tree lookup with auto-create; when the
// result is the Unknown sentinel, the payee routing table may substitute an
// account based on the owning transaction's payee. Resolution itself never
// fails; the returned error is the policy engine's ERROR-style rejection.
func (j *Journal) RegisterAccount(name string, post *Posting, location string, master *Account) (*Account, error) {
	var result *Account
	if len(j.aliases) > 0 {
		if acct, ok := j.aliases[name]; ok {
			result = acct
		}
	}
	if result == nil {
		result = master.FindAccount(name, true)
	}

	if result.Name == UnknownAccountName && post != nil && post.Xact != nil {
		for _, route := range j.payeeRoutes {
			if route.Pattern.MatchString(post.Xact.Payee) {
				result = route.Account
				break
			}
		}
	}

	var ctx ObservationContext = Declaration{}
	if post != nil {
		ctx = InPosting{Post: post}
	}
	acct := result
	err := j.checkKnown(ctx, location, "account", acct.FullName(),
		acct.Known, func() { acct.Known = true }, &j.fixedAccounts)
	return result, err
}

// RegisterPayee applies the payee mapping table to name, first match wins,
// returning name unchanged when nothing matches. Knowledge tracking for
// payees only runs when the journal was built with payee tracking enabled.
func (j *Journal) RegisterPayee(name string, xact *Transaction, location string) (string, error) {
	if j.TrackPayees {
		var ctx ObservationContext = Declaration{}
		if xact != nil {
			ctx = InTransaction{Xact: xact}
		}
		_, known := j.knownPayees[name]
		err := j.checkKnown(ctx, location, "payee", name,
			known, func() { j.knownPayees[name] = struct{}{} }, &j.fixedPayees)
		if err != nil {
			return "", err
		}
	}
	for _, mapping := range j.payeeMappings {
		if mapping.Pattern.MatchString(name) {
			return mapping.Payee, nil
		}
	}
	return name, nil
}

// RegisterCommodity applies the commodity knowledge policy. Commodities have
// no alias or routing fallback.
func (j *Journal) RegisterCommodity(commodity string, ctx ObservationContext, location string) error {
	_, known := j.knownCommodities[commodity]
	return j.checkKnown(ctx, location, "commodity", commodity,
		known, func() { j.knownCommodities[commodity] = struct{}{} }, &j.fixedCommodities)
}

// RegisterMetadata applies the metadata-tag knowledge policy for key and,
// when value is non-nil, evaluates every check expression registered for the
// tag in insertion order. A failed ASSERTION is fatal; a failed WARNING is
// logged and evaluation continues with the next check.
func (j *Journal) RegisterMetadata(key string, value *string, ctx ObservationContext, location string) error {
	_, known := j.knownTags[key]
	err := j.checkKnown(ctx, location, "metadata tag", key,
		known, func() { j.knownTags[key] = struct{}{} }, &j.fixedMetadata)
	if err != nil {
		return err
	}
	if value == nil {
		return nil
	}

	for _, check := range j.tagChecks[key] {
		scope := eval.NewValueScope(contextScope(ctx), *value)
		ok, evalErr := check.Predicate.Eval(scope)
		if evalErr != nil {
			return fmt.Errorf("%w: %smetadata check for (%s: %s): %v",
				apperrors.ErrParse, location, key, *value, evalErr)
		}
		if ok {
			continue
		}
		if check.Kind == ExprAssertion {
			return fmt.Errorf("%w: %smetadata assertion failed for (%s: %s): %s",
				apperrors.ErrParse, location, key, *value, check.Predicate.Source())
		}
		j.logger().Warn(fmt.Sprintf("metadata check failed for (%s: %s): %s",
			key, *value, check.Predicate.Source()),
			slog.String("location", location))
	}
	return nil
}

// RegisterAllMetadata walks the metadata of the record owned by ctx and
// registers every tag, passing nil values through for bare tags.
func (j *Journal) RegisterAllMetadata(ctx ObservationContext) error {
	var item *Item
	switch c := ctx.(type) {
	case InTransaction:
		item = &c.Xact.Item
	case InPosting:
		item = &c.Post.Item
	default:
		return nil
	}
	location := item.Pos.Location()
	for _, tag := range item.Tags.All() {
		if err := j.RegisterMetadata(tag.Key, tag.Value, ctx, location); err != nil {
			return err
		}
	}
	return nil
}
