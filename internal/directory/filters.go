package directory

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// bitAndRule is the LDAP matching rule OID for bitwise AND on integer attributes.
const bitAndRule = "1.2.840.113556.1.4.803"

// userSearchFilter builds the person-user filter: person-type objects only,
// computer accounts excluded, optional substring OR match, optional
// enabled/disabled bitmask rule. enabled nil means no status constraint.
func userSearchFilter(query string, enabled *bool) string {
	parts := []string{
		"(objectClass=user)",
		"(objectClass=person)",
		"(!(objectClass=computer))",
	}
	if query != "" {
		q := ldap.EscapeFilter(strings.ReplaceAll(query, "*", ""))
		parts = append(parts, fmt.Sprintf(
			"(|(sAMAccountName=*%[1]s*)(displayName=*%[1]s*)(cn=*%[1]s*)(mail=*%[1]s*)(mobile=*%[1]s*))", q))
	}
	if enabled != nil {
		if *enabled {
			parts = append(parts, fmt.Sprintf("(!(userAccountControl:%s:=2))", bitAndRule))
		} else {
			parts = append(parts, fmt.Sprintf("(userAccountControl:%s:=2)", bitAndRule))
		}
	}
	return "(&" + strings.Join(parts, "") + ")"
}

// enabledUsersFilter matches every enabled user object; used by the expiry scan.
func enabledUsersFilter() string {
	return fmt.Sprintf("(&(objectClass=user)(!(userAccountControl:%s:=2)))", bitAndRule)
}

// accountNameFilter matches a single user by sAMAccountName.
func accountNameFilter(username string) string {
	return fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(username))
}

// memberFilter matches a group entry listing the given DN as a direct member.
func memberFilter(userDN string) string {
	return fmt.Sprintf("(member=%s)", ldap.EscapeFilter(userDN))
}
