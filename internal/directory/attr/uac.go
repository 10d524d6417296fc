package attr

// userAccountControl bit flags used by the console.
const (
	// UACDisabled disables the account.
	UACDisabled = 0x2
	// UACNormalAccount is the default account type for person objects.
	UACNormalAccount = 0x200
	// UACNeverExpires exempts the password from the expiry policy.
	UACNeverExpires = 0x10000
)

// NormalizeUAC returns mask unchanged, or the normal-account default when the
// attribute was absent or unparseable (raw <= 0).
func NormalizeUAC(mask int) int {
	if mask <= 0 {
		return UACNormalAccount
	}
	return mask
}

// IsDisabled reports whether the disabled bit is set.
func IsDisabled(mask int) bool {
	return mask&UACDisabled != 0
}

// NeverExpires reports whether the password-never-expires bit is set.
func NeverExpires(mask int) bool {
	return mask&UACNeverExpires != 0
}

// WithDisabled returns mask with the disabled bit set or cleared.
func WithDisabled(mask int, disabled bool) int {
	if disabled {
		return mask | UACDisabled
	}
	return mask &^ UACDisabled
}

// WithNeverExpires returns mask with the never-expires bit set or cleared.
func WithNeverExpires(mask int, never bool) int {
	if never {
		return mask | UACNeverExpires
	}
	return mask &^ UACNeverExpires
}
