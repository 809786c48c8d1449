package transactions

// Column names of the transactions extract
const (
	ColTransactionID    = "transaction_id"
	ColAccountID        = "account_id"
	ColTimestamp        = "transaction_timestamp"
	ColAmount           = "amount"
	ColTransactionType  = "transaction_type"
	ColMerchantCategory = "merchant_category"
	ColChannel          = "channel"
)

// Columns lists the required columns in canonical order
var Columns = []string{
	ColTransactionID,
	ColAccountID,
	ColTimestamp,
	ColAmount,
	ColTransactionType,
	ColMerchantCategory,
	ColChannel,
}

// Record is one transaction as read from the extract. Timestamp and amount
// are kept as raw text; parsing happens during preprocessing.
type Record struct {
	TransactionID    string
	AccountID        string
	Timestamp        string
	Amount           string
	TransactionType  string
	MerchantCategory string
	Channel          string
}

// Values returns the record's fields in Columns order
func (r Record) Values() []string {
	return []string{
		r.TransactionID,
		r.AccountID,
		r.Timestamp,
		r.Amount,
		r.TransactionType,
		r.MerchantCategory,
		r.Channel,
	}
}

// Field returns the value of the named column and whether the column is known
func (r Record) Field(column string) (string, bool) {
	switch column {
	case ColTransactionID:
		return r.TransactionID, true
	case ColAccountID:
		return r.AccountID, true
	case ColTimestamp:
		return r.Timestamp, true
	case ColAmount:
		return r.Amount, true
	case ColTransactionType:
		return r.TransactionType, true
	case ColMerchantCategory:
		return r.MerchantCategory, true
	case ColChannel:
		return r.Channel, true
	}
	return "", false
}
