// Package domain holds the typed records the directory adapter returns.
// Every directory attribute is an explicit field; absence is a nil pointer or
// zero value, never a missing member.
package domain

import "time"

// User is a person object read live from the directory. The adapter never
// caches these; every read is a fresh query.
type User struct {
	DN          string
	AccountName string
	DisplayName string
	Mail        string
	Mobile      string
	Department  string
	Title       string
	// Groups are the DNs the user is a direct member of.
	Groups []string
	// AccountControl is the raw userAccountControl bitmask.
	AccountControl int
	Enabled        bool
	// PasswordNeverExpires mirrors the 0x10000 control bit.
	PasswordNeverExpires bool
	// PasswordExpiresAt is nil when no expiry applies.
	PasswordExpiresAt *time.Time
	// AccountExpiresAt is nil when the account never expires.
	AccountExpiresAt *time.Time
	// DaysLeft is days until password expiry, nil when no expiry applies.
	// Floored at zero for display purposes.
	DaysLeft *int
}

// OU is an organizational unit. The parent relationship is implicit in the DN.
type OU struct {
	DN          string
	Name        string
	Description string
}

// PasswordPolicy is the domain-root password policy.
type PasswordPolicy struct {
	MinLength        int
	HistoryLength    int
	MaxAgeDays       *int
	MinAgeDays       *int
	Properties       int
	LockoutThreshold int
	// ComplexityRequired decodes bit 0 of pwdProperties.
	ComplexityRequired bool
	// ReversibleEncryption decodes bit 7 of pwdProperties.
	ReversibleEncryption bool
}

// ExpiringUser is a row from the password-expiry scan.
type ExpiringUser struct {
	AccountName string
	DisplayName string
	Mail        string
	Mobile      string
	DaysLeft    int
}

// NewUserAttrs carries the optional attributes accepted on user creation.
type NewUserAttrs struct {
	Mail                 string
	Mobile               string
	Department           string
	Title                string
	PasswordNeverExpires bool
	// ForceChangeAtFirstLogin sets pwdLastSet=0 after the password write.
	ForceChangeAtFirstLogin bool
}

// UserChanges carries the attribute updates accepted by UpdateUser. Nil
// pointers are left untouched.
type UserChanges struct {
	DisplayName          *string
	Mail                 *string
	Mobile               *string
	Department           *string
	Title                *string
	PasswordNeverExpires *bool
	// AccountExpiresAt sets the account expiry; a non-nil pointer to the zero
	// time clears it.
	AccountExpiresAt *time.Time
}
