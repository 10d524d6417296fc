package attr

import "strings"

// DomainFromBaseDN extracts the dc= components of a base DN and joins them
// with dots: "dc=corp,dc=example,dc=com" -> "corp.example.com".
func DomainFromBaseDN(baseDN string) string {
	var parts []string
	for _, part := range strings.Split(baseDN, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 3 && strings.EqualFold(part[:3], "dc=") {
			parts = append(parts, part[3:])
		}
	}
	return strings.Join(parts, ".")
}

// PrincipalName synthesizes a userPrincipalName from an account name and the
// base DN's domain components.
func PrincipalName(accountName, baseDN string) string {
	return accountName + "@" + DomainFromBaseDN(baseDN)
}

// FirstRDN returns the leading relative DN of dn ("CN=Jane Doe" for
// "CN=Jane Doe,OU=Staff,dc=corp,..."). Used when renaming or reparenting.
func FirstRDN(dn string) string {
	if i := strings.Index(dn, ","); i >= 0 {
		return dn[:i]
	}
	return dn
}

// ParentDN returns everything after the leading RDN, or "" for a top-level DN.
func ParentDN(dn string) string {
	if i := strings.Index(dn, ","); i >= 0 {
		return dn[i+1:]
	}
	return ""
}
