package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntryInputValidate(t *testing.T) {
	valid := EntryInput{
		TenantID:        1,
		TransactionType: TxnSale,
		AccountHead:     HeadSales,
		Credit:          100,
	}
	require.NoError(t, valid.Validate())

	missingTenant := valid
	missingTenant.TenantID = 0
	require.ErrorIs(t, missingTenant.Validate(), ErrTenantRequired)

	negative := valid
	negative.Credit = -1
	require.ErrorIs(t, negative.Validate(), ErrNegativeAmount)

	noHead := valid
	noHead.AccountHead = ""
	require.Error(t, noHead.Validate())

	noType := valid
	noType.TransactionType = ""
	require.Error(t, noType.Validate())
}

func TestValidateBalanced(t *testing.T) {
	debit := EntryInput{TenantID: 1, TransactionType: TxnExpense, AccountHead: HeadExpenses, Debit: 100.005}
	credit := EntryInput{TenantID: 1, TransactionType: TxnExpense, AccountHead: HeadCash, Credit: 100.004}

	require.ErrorIs(t, ValidateBalanced(nil), ErrTooFewEntries)
	require.ErrorIs(t, ValidateBalanced([]EntryInput{debit}), ErrTooFewEntries)

	// Sums compare at two decimals, so sub-paisa drift still balances.
	require.NoError(t, ValidateBalanced([]EntryInput{debit, credit}))

	credit.Credit = 99
	require.ErrorIs(t, ValidateBalanced([]EntryInput{debit, credit}), ErrUnbalanced)

	credit.Credit = -100.005
	debit.Debit = -100.005
	require.ErrorIs(t, ValidateBalanced([]EntryInput{debit, credit}), ErrNegativeAmount)
}
