package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txanomaly/internal/transactions"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules(nil)
	require.Len(t, rules, 2)
	assert.Equal(t, "invalid_tx_amount", rules[0].Name)
	assert.Equal(t, "amount > 0.0", rules[0].Expression)
	assert.Equal(t, "empty_account_id", rules[1].Name)

	rules = DefaultRules([]string{"pos", "web"})
	require.Len(t, rules, 3)
	assert.Equal(t, `channel in ["pos", "web"]`, rules[2].Expression)
}

func TestRuleSetEvaluate(t *testing.T) {
	records := []transactions.Record{
		rec("1", "2024-01-01 00:00:00", "10"),
		rec("2", "2024-01-01 00:00:00", "0"),
		rec("3", "2024-01-01 00:00:00", "-4"),
		rec("4", "2024-01-01 00:00:00", "oops"),
		{TransactionID: "5", Timestamp: "2024-01-01", Amount: "2", Channel: "atm"},
	}

	rs, err := NewRuleSet(DefaultRules([]string{"pos", "web"}))
	require.NoError(t, err)

	results, err := rs.Evaluate(records)
	require.NoError(t, err)
	assert.Equal(t, []RuleResult{
		{Check: "invalid_tx_amount", NumIssues: 3},
		{Check: "empty_account_id", NumIssues: 1},
		{Check: "unknown_channel", NumIssues: 1},
	}, results)
}

func TestRuleSetCustomRules(t *testing.T) {
	rs, err := NewRuleSet([]Rule{
		{Name: "has_time", Expression: "has_timestamp"},
		{Name: "small", Expression: "amount < 1000.0 || transaction_type == 'transfer'"},
	})
	require.NoError(t, err)

	big := rec("1", "bad", "5000")
	transfer := rec("2", "2024-01-01", "5000")
	transfer.TransactionType = "transfer"

	results, err := rs.Evaluate([]transactions.Record{big, transfer})
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].NumIssues)
	assert.Equal(t, 1, results[1].NumIssues)
}

func TestNewRuleSetErrors(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		msg  string
	}{
		{"syntax", Rule{Name: "bad", Expression: "amount >"}, "compile error in rule bad"},
		{"unknown variable", Rule{Name: "undeclared", Expression: "balance > 0.0"}, "compile error in rule undeclared"},
		{"not bool", Rule{Name: "number", Expression: "amount + 1.0"}, "does not return bool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleSet([]Rule{tt.rule})
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestRuleResultRecord(t *testing.T) {
	assert.Equal(t, []string{"empty_account_id", "4"}, RuleResult{Check: "empty_account_id", NumIssues: 4}.Record())
}
