package ledger

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownAccountName is the leaf name of the sentinel account that normal
// resolution falls back to; payee routing only triggers for it.
const UnknownAccountName = "Unknown"

const maxAccountDepth = 256

// AccountXData holds transient computed state attached to an account during
// a load, opaque to the engine itself.
type AccountXData struct {
	Visited   bool
	PostCount int
	Total     decimal.Decimal
}

// Account is one node of the hierarchical account namespace. The journal
// owns the root; every other account is owned by its parent.
type Account struct {
	Parent *Account
	Name   string
	Note   string
	Known  bool

	accounts map[string]*Account
	fullname string
	xdata    *AccountXData
}

// NewAccount creates a detached account node. Attach it with AddAccount or
// let FindAccount auto-create the path.
func NewAccount(name string) *Account {
	return &Account{Name: name}
}

// AddAccount attaches child under a, replacing any sibling with the same name.
func (a *Account) AddAccount(child *Account) {
	if a.accounts == nil {
		a.accounts = make(map[string]*Account)
	}
	child.Parent = a
	child.fullname = ""
	a.accounts[child.Name] = child
}

// RemoveAccount detaches child from a. Returns false when child is not a
// direct child of a.
func (a *Account) RemoveAccount(child *Account) bool {
	if existing, ok := a.accounts[child.Name]; !ok || existing != child {
		return false
	}
	delete(a.accounts, child.Name)
	child.Parent = nil
	child.fullname = ""
	return true
}

// FindAccount resolves a colon-delimited path relative to a. With autoCreate
// set, missing intermediate and leaf nodes are created; otherwise a miss
// returns nil, never an error.
func (a *Account) FindAccount(path string, autoCreate bool) *Account {
	account := a
	for _, name := range strings.Split(path, ":") {
		child, ok := account.accounts[name]
		if !ok {
			if !autoCreate {
				return nil
			}
			child = NewAccount(name)
			account.AddAccount(child)
		}
		account = child
	}
	return account
}

// FindAccountRe returns the first account (in sibling name order, depth
// first) whose full name matches pattern, or nil.
func (a *Account) FindAccountRe(pattern string) (*Account, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return a.findAccountRe(re), nil
}

func (a *Account) findAccountRe(re *regexp.Regexp) *Account {
	if re.MatchString(a.FullName()) {
		return a
	}
	for _, child := range a.Accounts() {
		if found := child.findAccountRe(re); found != nil {
			return found
		}
	}
	return nil
}

// Accounts returns the direct children sorted by name.
func (a *Account) Accounts() []*Account {
	names := make([]string, 0, len(a.accounts))
	for name := range a.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	children := make([]*Account, len(names))
	for i, name := range names {
		children[i] = a.accounts[name]
	}
	return children
}

// FullName returns the colon-joined path from the root, excluding the
// unnamed root itself. The result is cached per node.
func (a *Account) FullName() string {
	if a.fullname != "" {
		return a.fullname
	}
	var parts []string
	for node := a; node != nil && node.Name != ""; node = node.Parent {
		parts = append(parts, node.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	a.fullname = strings.Join(parts, ":")
	return a.fullname
}

// Depth returns the number of ancestors above a.
func (a *Account) Depth() int {
	depth := 0
	for node := a.Parent; node != nil; node = node.Parent {
		depth++
	}
	return depth
}

// HasXData reports whether computed state is attached to this node.
func (a *Account) HasXData() bool { return a.xdata != nil }

// XData returns the computed state, allocating it on first use.
func (a *Account) XData() *AccountXData {
	if a.xdata == nil {
		a.xdata = &AccountXData{}
	}
	return a.xdata
}

// ClearXData drops computed state from this node and every descendant.
func (a *Account) ClearXData() {
	a.xdata = nil
	for _, child := range a.accounts {
		child.ClearXData()
	}
}

// ChildrenWithXData reports whether any descendant carries computed state.
func (a *Account) ChildrenWithXData() bool {
	for _, child := range a.accounts {
		if child.HasXData() || child.ChildrenWithXData() {
			return true
		}
	}
	return false
}

// Valid recursively checks structural sanity: bounded depth and children
// that point back at their parent.
func (a *Account) Valid() bool {
	if a.Depth() > maxAccountDepth {
		return false
	}
	for _, child := range a.accounts {
		if child.Parent != a || !child.Valid() {
			return false
		}
	}
	return true
}
