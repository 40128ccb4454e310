package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/ledgercore/internal/ledger"
)

func TestFindAccountAutoCreate(t *testing.T) {
	j := ledger.New()

	acct := j.FindAccount("Expenses:Food:Dining", true)
	require.NotNil(t, acct)
	assert.Equal(t, "Dining", acct.Name)
	assert.Equal(t, "Expenses:Food:Dining", acct.FullName())
	assert.Equal(t, 3, acct.Depth())

	// Intermediate nodes were created and linked.
	food := j.FindAccount("Expenses:Food", false)
	require.NotNil(t, food)
	assert.Same(t, food, acct.Parent)

	// Same path resolves to the same node.
	assert.Same(t, acct, j.FindAccount("Expenses:Food:Dining", true))
}

func TestFindAccountNoAutoCreate(t *testing.T) {
	j := ledger.New()
	assert.Nil(t, j.FindAccount("Assets:Checking", false))
	// A miss with auto-create disabled must not create the path either.
	assert.Nil(t, j.FindAccount("Assets", false))
}

func TestFindAccountRe(t *testing.T) {
	j := ledger.New()
	dining := j.FindAccount("Expenses:Food:Dining", true)
	j.FindAccount("Expenses:Travel", true)

	found, err := j.FindAccountRe("Food")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Expenses:Food", found.FullName())

	found, err = j.FindAccountRe("Dining$")
	require.NoError(t, err)
	assert.Same(t, dining, found)

	found, err = j.FindAccountRe("Liabilities")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = j.FindAccountRe("(")
	assert.Error(t, err)
}

func TestAddRemoveAccount(t *testing.T) {
	j := ledger.New()
	acct := ledger.NewAccount("Assets")
	j.AddAccount(acct)

	assert.Same(t, acct, j.FindAccount("Assets", false))
	assert.True(t, j.RemoveAccount(acct))
	assert.Nil(t, j.FindAccount("Assets", false))

	// A second removal reports the account as absent.
	assert.False(t, j.RemoveAccount(acct))
}

func TestAccountValid(t *testing.T) {
	j := ledger.New()
	child := j.FindAccount("Assets:Checking", true)
	assert.True(t, j.Master.Valid())

	// A child whose parent pointer does not point back is invalid.
	child.Parent = nil
	assert.False(t, j.Master.Valid())
}

func TestAccountXData(t *testing.T) {
	j := ledger.New()
	leaf := j.FindAccount("Assets:Checking", true)

	assert.False(t, leaf.HasXData())
	leaf.XData().PostCount = 3
	assert.True(t, leaf.HasXData())
	assert.True(t, j.Master.ChildrenWithXData())

	j.Master.ClearXData()
	assert.False(t, leaf.HasXData())
	assert.False(t, j.Master.ChildrenWithXData())
}
