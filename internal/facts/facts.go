// Package facts resolves the customer facts that conditions compare
// against. Condition keys follow a small grammar shared with the admin
// workflow that authors specs:
//
//	balance:<account>            balance of an account in its base currency
//	balance:<account>:<CUR>      balance of an account in one currency
//	deposit_streak               consecutive daily-deposit days
//	account_age:<account>        days since the account was opened
//	repayment_streak             consecutive on-time repayments
//	kyc_tier                     current KYC tier label
//	groups                       group membership codes
//	payment_defaults             count of defaulted payments
package facts

import "strings"

// Key families understood by the providers. Unknown keys resolve to nothing,
// which the evaluator treats as unmet.
const (
	KeyDepositStreak   = "deposit_streak"
	KeyRepaymentStreak = "repayment_streak"
	KeyKYCTier         = "kyc_tier"
	KeyGroups          = "groups"
	KeyPaymentDefaults = "payment_defaults"

	prefixBalance    = "balance:"
	prefixAccountAge = "account_age:"
)

// balanceKey splits "balance:<account>[:<CUR>]" into its parts.
func balanceKey(key string) (account, currency string, ok bool) {
	if !strings.HasPrefix(key, prefixBalance) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(key, prefixBalance), ":")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	}
	return "", "", false
}

func accountAgeKey(key string) (account string, ok bool) {
	if !strings.HasPrefix(key, prefixAccountAge) {
		return "", false
	}
	account = strings.TrimPrefix(key, prefixAccountAge)
	return account, account != ""
}
