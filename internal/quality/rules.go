package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/transactions"
)

// Rule is a named CEL predicate that every valid transaction satisfies
type Rule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// RuleResult is the number of transactions violating one rule
type RuleResult struct {
	Check     string
	NumIssues int
}

// RuleResultHeaders are the columns of a BDQ report file
var RuleResultHeaders = []string{"check", "num_issues"}

// Record renders r in RuleResultHeaders order
func (r RuleResult) Record() []string {
	return []string{r.Check, strconv.Itoa(r.NumIssues)}
}

// DefaultRules returns the transaction rules. A non-empty channels list
// adds a rule restricting the channel to those values.
func DefaultRules(channels []string) []Rule {
	rules := []Rule{
		{Name: "invalid_tx_amount", Expression: "amount > 0.0"},
		{Name: "empty_account_id", Expression: `account_id != ""`},
	}
	if len(channels) > 0 {
		quoted := make([]string, len(channels))
		for i, c := range channels {
			quoted[i] = strconv.Quote(c)
		}
		rules = append(rules, Rule{
			Name:       "unknown_channel",
			Expression: fmt.Sprintf("channel in [%s]", strings.Join(quoted, ", ")),
		})
	}
	return rules
}

type compiledRule struct {
	name    string
	program cel.Program
}

// RuleSet evaluates compiled rules against transactions
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet compiles rules. Every expression must evaluate to a bool.
// Expressions see the transaction fields as variables of the same name;
// amount is a double (0 when unparseable) and has_timestamp reports
// whether the timestamp parsed.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	env, err := cel.NewEnv(
		cel.Variable(transactions.ColTransactionID, cel.StringType),
		cel.Variable(transactions.ColAccountID, cel.StringType),
		cel.Variable(transactions.ColTimestamp, cel.StringType),
		cel.Variable(transactions.ColAmount, cel.DoubleType),
		cel.Variable(transactions.ColTransactionType, cel.StringType),
		cel.Variable(transactions.ColMerchantCategory, cel.StringType),
		cel.Variable(transactions.ColChannel, cel.StringType),
		cel.Variable("has_timestamp", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	rs := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile error in rule %s: %w", rule.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %s does not return bool", rule.Name)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program error in rule %s: %w", rule.Name, err)
		}
		rs.rules = append(rs.rules, compiledRule{name: rule.Name, program: prg})
	}
	return rs, nil
}

// activation exposes one record to the rules
func activation(r transactions.Record) map[string]interface{} {
	_, hasTS := anomaly.ParseTimestamp(r.Timestamp)
	return map[string]interface{}{
		transactions.ColTransactionID:    r.TransactionID,
		transactions.ColAccountID:        r.AccountID,
		transactions.ColTimestamp:        r.Timestamp,
		transactions.ColAmount:           anomaly.ParseAmount(r.Amount),
		transactions.ColTransactionType:  r.TransactionType,
		transactions.ColMerchantCategory: r.MerchantCategory,
		transactions.ColChannel:          r.Channel,
		"has_timestamp":                  hasTS,
	}
}

// Evaluate counts the records violating each rule, in rule order
func (rs *RuleSet) Evaluate(records []transactions.Record) ([]RuleResult, error) {
	results := make([]RuleResult, len(rs.rules))
	for i, rule := range rs.rules {
		results[i].Check = rule.name
	}

	for n, r := range records {
		vars := activation(r)
		for i, rule := range rs.rules {
			out, _, err := rule.program.Eval(vars)
			if err != nil {
				return nil, fmt.Errorf("eval error in rule %s at row %d: %w", rule.name, n, err)
			}
			ok, isBool := out.Value().(bool)
			if !isBool {
				return nil, fmt.Errorf("rule %s did not return bool", rule.name)
			}
			if !ok {
				results[i].NumIssues++
			}
		}
	}
	return results, nil
}
