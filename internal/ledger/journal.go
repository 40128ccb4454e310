// Package ledger implements the in-memory consistency and extension engine
// of a double-entry journal: the account tree, the recorded transactions,
// and the policies deciding whether accounts, payees, commodities and
// metadata tags are known and whether declared invariants hold.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/finbooks/ledgercore/internal/eval"
)

var (
	// ErrNoScope is returned by Load when neither a scope argument nor a
	// journal default scope is available.
	ErrNoScope = errors.New("no evaluation scope in which to read journal")
	// ErrNoParser is returned by Load when no parser was configured.
	ErrNoParser = errors.New("no parser configured for journal")
)

// CheckExprKind distinguishes fatal metadata assertions from advisory checks.
type CheckExprKind int

const (
	ExprAssertion CheckExprKind = iota
	ExprWarning
)

// TagCheck is one registered check for a metadata tag: a boolean predicate
// over the owning record's scope extended with the tag value.
type TagCheck struct {
	Predicate *eval.Predicate
	Kind      CheckExprKind
}

// PayeeRoute maps a payee pattern to the account that replaces the Unknown
// sentinel during account registration. First match wins.
type PayeeRoute struct {
	Pattern *regexp.Regexp
	Account *Account
}

// PayeeMapping rewrites a matching payee name to a canonical one.
type PayeeMapping struct {
	Pattern *regexp.Regexp
	Payee   string
}

// FileInfo records a source file that contributed transactions to the
// journal.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Parser recognizes the plain-text journal grammar and drives the journal's
// registration gateways as it recognizes each construct. It returns the
// number of transactions committed.
type Parser interface {
	Parse(in io.Reader, journal *Journal, master *Account, scope eval.Scope, path string) (int, error)
}

// Journal owns the account tree and the recorded transactions, and enforces
// the knowledge and deduplication policies during ingestion. It is not safe
// for concurrent use; a load call assumes exclusive ownership of the
// journal's state.
type Journal struct {
	Master *Account
	Bucket *Account

	Transactions []*Transaction
	AutoXacts    []*AutomatedTransaction
	PeriodXacts  []*PeriodicTransaction
	Sources      []FileInfo
	WasLoaded    bool

	// ForceChecking makes declaration directives lock their kind's
	// knowledge set; CheckingStyle resolves every miss thereafter.
	ForceChecking bool
	CheckingStyle CheckingStyle

	// TrackPayees enables payee knowledge tracking in RegisterPayee. Off by
	// default; payee rewriting via mappings is always active.
	TrackPayees bool

	// DefaultScope backs Load calls that pass no scope. Injected at
	// construction; there is no process-wide fallback.
	DefaultScope eval.Scope

	aliases       map[string]*Account
	payeeRoutes   []PayeeRoute
	payeeMappings []PayeeMapping
	tagChecks     map[string][]TagCheck
	checksums     map[string]*Transaction

	knownPayees      map[string]struct{}
	knownCommodities map[string]struct{}
	knownTags        map[string]struct{}

	fixedAccounts    bool
	fixedPayees      bool
	fixedCommodities bool
	fixedMetadata    bool

	parser Parser
	log    *slog.Logger
}

// Option configures a journal at construction.
type Option func(*Journal)

// WithParser sets the parser that Load delegates to.
func WithParser(p Parser) Option { return func(j *Journal) { j.parser = p } }

// WithLogger sets the logger used for non-fatal advisories.
func WithLogger(l *slog.Logger) Option { return func(j *Journal) { j.log = l } }

// WithDefaultScope sets the scope used by Load when none is passed.
func WithDefaultScope(s eval.Scope) Option { return func(j *Journal) { j.DefaultScope = s } }

// WithCheckingStyle sets how knowledge-set misses are resolved.
func WithCheckingStyle(style CheckingStyle) Option {
	return func(j *Journal) { j.CheckingStyle = style }
}

// WithForceChecking makes declarations lock their kind's knowledge set.
func WithForceChecking() Option { return func(j *Journal) { j.ForceChecking = true } }

// WithPayeeTracking enables the dormant payee knowledge policy.
func WithPayeeTracking() Option { return func(j *Journal) { j.TrackPayees = true } }

// New creates an empty journal with an unnamed master account.
func New(opts ...Option) *Journal {
	j := &Journal{
		Master:           NewAccount(""),
		aliases:          make(map[string]*Account),
		tagChecks:        make(map[string][]TagCheck),
		checksums:        make(map[string]*Transaction),
		knownPayees:      make(map[string]struct{}),
		knownCommodities: make(map[string]struct{}),
		knownTags:        make(map[string]struct{}),
		CheckingStyle:    CheckPermissive,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// NewFromFile creates a journal and loads path into it.
func NewFromFile(path string, opts ...Option) (*Journal, error) {
	j := New(opts...)
	if _, err := j.LoadFile(path, nil, nil); err != nil {
		return nil, err
	}
	return j, nil
}

// NewFromString creates a journal and loads the given journal text into it.
func NewFromString(text string, opts ...Option) (*Journal, error) {
	j := New(opts...)
	if _, err := j.Load(strings.NewReader(text), "", nil, nil); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) logger() *slog.Logger {
	if j.log != nil {
		return j.log
	}
	return slog.Default()
}

// Logger exposes the journal's advisory logger to collaborators such as the
// parser.
func (j *Journal) Logger() *slog.Logger { return j.logger() }

// AddAccount attaches acct directly under the master account.
func (j *Journal) AddAccount(acct *Account) {
	j.Master.AddAccount(acct)
}

// RemoveAccount detaches acct from the master account.
func (j *Journal) RemoveAccount(acct *Account) bool {
	return j.Master.RemoveAccount(acct)
}

// FindAccount resolves a colon-delimited path from the master account.
func (j *Journal) FindAccount(path string, autoCreate bool) *Account {
	return j.Master.FindAccount(path, autoCreate)
}

// FindAccountRe returns the first account whose full name matches pattern.
func (j *Journal) FindAccountRe(pattern string) (*Account, error) {
	return j.Master.FindAccountRe(pattern)
}

// AddAlias maps name to acct; aliases win over tree lookup during account
// registration.
func (j *Journal) AddAlias(name string, acct *Account) {
	j.aliases[name] = acct
}

// Alias returns the account aliased to name, if any.
func (j *Journal) Alias(name string) (*Account, bool) {
	acct, ok := j.aliases[name]
	return acct, ok
}

// AddPayeeRoute appends an Unknown-account routing rule. Routes are
// consulted in registration order; first match wins.
func (j *Journal) AddPayeeRoute(pattern string, acct *Account) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("payee route %q: %w", pattern, err)
	}
	j.payeeRoutes = append(j.payeeRoutes, PayeeRoute{Pattern: re, Account: acct})
	return nil
}

// AddPayeeMapping appends a payee rewriting rule, consulted in order by
// RegisterPayee.
func (j *Journal) AddPayeeMapping(pattern, payee string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("payee mapping %q: %w", pattern, err)
	}
	j.payeeMappings = append(j.payeeMappings, PayeeMapping{Pattern: re, Payee: payee})
	return nil
}

// AddTagCheck registers a check expression for a metadata tag. One tag may
// carry several checks; they run in registration order.
func (j *Journal) AddTagCheck(tag string, predicate *eval.Predicate, kind CheckExprKind) {
	j.tagChecks[tag] = append(j.tagChecks[tag], TagCheck{Predicate: predicate, Kind: kind})
}

// AddAutomatedTransaction appends an automated transaction; extension
// iterates them in registration order.
func (j *Journal) AddAutomatedTransaction(auto *AutomatedTransaction) {
	auto.Journal = j
	j.AutoXacts = append(j.AutoXacts, auto)
}

// AddPeriodicTransaction stores a periodic transaction for lifecycle and
// validation purposes.
func (j *Journal) AddPeriodicTransaction(period *PeriodicTransaction) {
	period.Journal = j
	j.PeriodXacts = append(j.PeriodXacts, period)
}

// ChecksumOwner returns the transaction that first claimed the given UUID
// tag value, if any.
func (j *Journal) ChecksumOwner(uuidValue string) *Transaction {
	return j.checksums[uuidValue]
}

// Load reads journal input from in, delegating recognition to the configured
// parser. A nil master defaults to the journal's master account; a nil scope
// falls back to the journal's default scope and fails if none was injected.
// Transient computed state is cleared on every exit path, success or
// failure, so state produced incidentally during a load never outlives it.
func (j *Journal) Load(in io.Reader, path string, master *Account, scope eval.Scope) (int, error) {
	defer j.ClearXData()

	if scope == nil {
		scope = j.DefaultScope
	}
	if scope == nil {
		return 0, fmt.Errorf("%w %q", ErrNoScope, path)
	}
	if j.parser == nil {
		return 0, ErrNoParser
	}
	if master == nil {
		master = j.Master
	}
	return j.parser.Parse(in, j, master, scope, path)
}

// LoadFile opens path and loads it. Files that contribute at least one
// transaction are recorded in Sources.
func (j *Journal) LoadFile(path string, master *Account, scope eval.Scope) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("cannot read journal file %q: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot read journal file %q: %w", path, err)
	}
	defer f.Close()

	count, err := j.Load(f, path, master, scope)
	if err != nil {
		return count, err
	}
	if count > 0 {
		j.Sources = append(j.Sources, FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
	j.WasLoaded = true
	return count, nil
}

// HasXData reports whether any transaction, automated or periodic
// transaction, or account currently carries transient computed state.
func (j *Journal) HasXData() bool {
	for _, xact := range j.Transactions {
		if xact.HasXDataDeep() {
			return true
		}
	}
	for _, auto := range j.AutoXacts {
		if auto.HasXData() {
			return true
		}
	}
	for _, period := range j.PeriodXacts {
		if period.HasXData() {
			return true
		}
	}
	return j.Master.HasXData() || j.Master.ChildrenWithXData()
}

// ClearXData drops transient computed state from every non-temporary item
// and, recursively, from the account tree. Idempotent.
func (j *Journal) ClearXData() {
	for _, xact := range j.Transactions {
		if !xact.Temp {
			xact.ClearXDataDeep()
		}
	}
	for _, auto := range j.AutoXacts {
		if !auto.Temp {
			auto.ClearXData()
		}
	}
	for _, period := range j.PeriodXacts {
		if !period.Temp {
			period.ClearXData()
		}
	}
	j.Master.ClearXData()
}

// Valid recursively validates the account tree and every transaction,
// short-circuiting on the first invalid entity. A self-check, not part of
// the ingestion hot path.
func (j *Journal) Valid() bool {
	if !j.Master.Valid() {
		return false
	}
	for _, xact := range j.Transactions {
		if !xact.Valid() {
			return false
		}
	}
	return true
}
