package parse_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/ledgercore/internal/apperrors"
	"github.com/finbooks/ledgercore/internal/eval"
	"github.com/finbooks/ledgercore/internal/ledger"
	"github.com/finbooks/ledgercore/internal/parse"
)

func newOptions(extra ...ledger.Option) []ledger.Option {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return append([]ledger.Option{
		ledger.WithParser(parse.NewReader()),
		ledger.WithDefaultScope(eval.NewBaseScope()),
		ledger.WithLogger(quiet),
	}, extra...)
}

const sampleJournal = `; sample journal

account Assets:Checking
alias food=Expenses:Food
commodity USD

= account startsWith "Expenses"
    Budget:Allocated  *1

2024-03-01 * Corner Shop
    ; UUID: aaa-111
    food  12.50 USD
    Assets:Checking

2024-03-02 Corner Shop
    ; UUID: aaa-111
    food  12.50 USD
    Assets:Checking

2024-03-03 ! (042) Transfer out
    Assets:Savings  100 USD
    Assets:Checking  -100 USD
`

func TestParseSampleJournal(t *testing.T) {
	j, err := ledger.NewFromString(sampleJournal, newOptions()...)
	require.NoError(t, err)

	// The duplicate-UUID transaction was dropped.
	require.Len(t, j.Transactions, 2)

	first := j.Transactions[0]
	assert.Equal(t, "Corner Shop", first.Payee)
	assert.Equal(t, ledger.Cleared, first.State)
	uuid, ok := first.TagValue(ledger.TagUUID)
	require.True(t, ok)
	assert.Equal(t, "aaa-111", *uuid)
	assert.Same(t, first, j.ChecksumOwner("aaa-111"))

	// Alias resolution, elided amount, and automated extension.
	require.Len(t, first.Postings, 3)
	assert.Equal(t, "Expenses:Food", first.Postings[0].Account.FullName())
	require.NotNil(t, first.Postings[1].Amount)
	assert.True(t, first.Postings[1].Amount.Equal(decimal.RequireFromString("-12.50")))
	assert.Equal(t, "Budget:Allocated", first.Postings[2].Account.FullName())
	assert.True(t, first.Postings[2].Amount.Equal(decimal.RequireFromString("12.50")))

	second := j.Transactions[1]
	assert.Equal(t, ledger.Pending, second.State)
	assert.Equal(t, "042", second.Code)
	assert.Equal(t, "Transfer out", second.Payee)
	// No Expenses posting, so the automated transaction did not fire.
	assert.Len(t, second.Postings, 2)

	// Load cleared transient state before returning.
	assert.False(t, j.HasXData())
	assert.True(t, j.Valid())
}

func TestParseDeclarationsSatisfyErrorStyle(t *testing.T) {
	const text = `account Expenses:Food
account Assets:Checking
commodity USD

2024-03-01 Corner Shop
    Expenses:Food  12.50 USD
    Assets:Checking
`
	j, err := ledger.NewFromString(text,
		newOptions(ledger.WithCheckingStyle(ledger.CheckError))...)
	require.NoError(t, err)
	assert.Len(t, j.Transactions, 1)
}

func TestParseUnknownAccountUnderErrorStyle(t *testing.T) {
	const text = `2024-03-01 Corner Shop
    Expenses:Food  12.50 USD
    Assets:Checking
`
	_, err := ledger.NewFromString(text,
		newOptions(ledger.WithCheckingStyle(ledger.CheckError))...)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestParseBucketDirective(t *testing.T) {
	const text = `bucket Assets:Checking

2024-03-01 Corner Shop
    Expenses:Food  7.25 USD
`
	j, err := ledger.NewFromString(text, newOptions()...)
	require.NoError(t, err)
	require.Len(t, j.Transactions, 1)

	xact := j.Transactions[0]
	require.Len(t, xact.Postings, 2)
	assert.Equal(t, "Assets:Checking", xact.Postings[1].Account.FullName())
	assert.True(t, xact.Postings[1].Amount.Equal(decimal.RequireFromString("-7.25")))
}

func TestParsePostingMetadata(t *testing.T) {
	const text = `2024-03-01 Corner Shop
    Expenses:Food  12.50 USD
    ; Approved: true
    Assets:Checking
`
	j, err := ledger.NewFromString(text, newOptions()...)
	require.NoError(t, err)
	require.Len(t, j.Transactions, 1)

	post := j.Transactions[0].Postings[0]
	value, ok := post.TagValue("Approved")
	require.True(t, ok)
	assert.Equal(t, "true", *value)
}

func TestParseAssertDirective(t *testing.T) {
	_, err := ledger.NewFromString("assert 1 == 2\n", newOptions()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParse)
	assert.Contains(t, err.Error(), "assertion failed")

	// check is the advisory twin: it logs instead of failing.
	j, err := ledger.NewFromString("check 1 == 2\n", newOptions()...)
	require.NoError(t, err)
	assert.Empty(t, j.Transactions)
}

func TestParseInvalidDate(t *testing.T) {
	_, err := ledger.NewFromString("2024-13-99 Corner Shop\n", newOptions()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestParseUnknownDirective(t *testing.T) {
	_, err := ledger.NewFromString("frobnicate all the things\n", newOptions()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestParseUnbalancedTransactionSkipped(t *testing.T) {
	const text = `2024-03-01 Corner Shop
    Expenses:Food  12.50 USD
    Assets:Checking  -12.00 USD

2024-03-02 Corner Shop
    Expenses:Food  3.00 USD
    Assets:Checking
`
	j, err := ledger.NewFromString(text, newOptions()...)
	require.NoError(t, err)
	// The unbalanced record is rejected silently; parsing continues.
	require.Len(t, j.Transactions, 1)
	assert.Equal(t, "2024-03-02", j.Transactions[0].Date.Format("2006-01-02"))
}

func TestParseDollarAmounts(t *testing.T) {
	const text = `2024-03-01 Corner Shop
    Expenses:Food  $12.50
    Assets:Checking  -$12.50
`
	j, err := ledger.NewFromString(text, newOptions()...)
	require.NoError(t, err)
	require.Len(t, j.Transactions, 1)
	assert.Equal(t, "$", j.Transactions[0].Postings[0].Commodity)
}

func TestLoadFileRecordsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.dat")
	require.NoError(t, os.WriteFile(path, []byte(sampleJournal), 0o644))

	j := ledger.New(newOptions()...)
	count, err := j.LoadFile(path, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	assert.True(t, j.WasLoaded)
	require.Len(t, j.Sources, 1)
	source := j.Sources[0]
	assert.Equal(t, path, source.Path)
	assert.Equal(t, int64(len(sampleJournal)), source.Size)
	assert.False(t, source.ModTime.IsZero())
}

func TestLoadFileWithoutTransactionsLeavesSourcesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decl.dat")
	require.NoError(t, os.WriteFile(path, []byte("account Assets:Checking\n"), 0o644))

	j := ledger.New(newOptions()...)
	count, err := j.LoadFile(path, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, j.Sources)
	assert.True(t, j.WasLoaded)
}

func TestLoadFileMissing(t *testing.T) {
	j := ledger.New(newOptions()...)
	_, err := j.LoadFile(filepath.Join(t.TempDir(), "absent.dat"), nil, nil)
	require.Error(t, err)
	assert.False(t, j.WasLoaded)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.dat")
	require.NoError(t, os.WriteFile(path, []byte(sampleJournal), 0o644))

	j, err := ledger.NewFromFile(path, newOptions()...)
	require.NoError(t, err)
	assert.Len(t, j.Transactions, 2)
	assert.True(t, j.WasLoaded)
}

func TestParseMetadataAssertionReportsLocationOnce(t *testing.T) {
	const text = `2024-03-01 Corner Shop
    ; Receipt: no
    Expenses:Food  12.50 USD
    Assets:Checking
`
	j := ledger.New(newOptions()...)
	j.AddTagCheck("Receipt", eval.MustCompile(`value == "yes"`), ledger.ExprAssertion)

	_, err := j.Load(strings.NewReader(text), "books.dat", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParse)
	assert.Equal(t, 1, strings.Count(err.Error(), "books.dat:"))
}

func TestParsePayeeMappingApplied(t *testing.T) {
	const text = `2024-03-01 AMZN MKTP US
    Expenses:Shopping  20 USD
    Assets:Checking
`
	j := ledger.New(newOptions()...)
	require.NoError(t, j.AddPayeeMapping("^AMZN", "Amazon"))

	count, err := j.Load(strings.NewReader(text), "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.Equal(t, "Amazon", j.Transactions[0].Payee)
}
