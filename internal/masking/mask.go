// Package masking derives redacted display strings from plaintext field
// values for lower-privilege viewers. All functions are deterministic and
// side-effect free; none of them touch storage or the crypto engine.
package masking

// BankCode is deliberately uninformative regardless of the value.
func BankCode(_ string) string {
	return "**"
}

// Agency keeps only the last character.
func Agency(agency string) string {
	if agency == "" {
		return "***"
	}
	return "***" + agency[len(agency)-1:]
}

// AccountNumber keeps the last four characters.
func AccountNumber(number string) string {
	if len(number) <= 4 {
		return "****"
	}
	return "****" + number[len(number)-4:]
}

// Last4 is the derived display suffix stored alongside a bank account.
func Last4(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

// NationalID formats an 11-digit national id as 123.***.***.01. Any other
// length gets a fixed placeholder rather than a partial leak.
func NationalID(id string) string {
	if len(id) != 11 {
		return "***.***.***-**"
	}
	return id[:3] + ".***.***." + id[9:]
}

// Phone keeps the last four digits.
func Phone(phone string) string {
	if len(phone) < 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}

// PixKey reuses the account-number projection; PIX keys vary in shape
// (email, phone, random key) and only the tail is ever shown.
func PixKey(key string) string {
	return AccountNumber(key)
}
