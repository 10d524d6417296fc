// Package directory is the adapter between the console's typed user/OU
// records and the directory service's native wire attributes. Every operation
// opens a fresh bind and closes it on return; connections are never pooled or
// reused, so a stale bind can never leak between operations.
package directory

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"directory-console/backend/internal/directory/attr"
	"directory-console/backend/internal/directory/domain"
)

// Config carries the connection settings for the directory.
type Config struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
	// CACert is a path to a PEM bundle for ldaps; empty uses system roots.
	CACert string
	// TLSVerify disables certificate validation when false.
	TLSVerify bool
}

// conn is the subset of *ldap.Conn the adapter uses; tests substitute fakes.
type conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
	ModifyDN(req *ldap.ModifyDNRequest) error
	Close() error
}

// Client executes directory operations. Safe for concurrent use; each call
// dials its own connection.
type Client struct {
	cfg  Config
	dial func(cfg Config) (conn, error)
	now  func() time.Time
}

// New returns a Client for the given directory settings.
func New(cfg Config) *Client {
	return &Client{cfg: cfg, dial: dialLDAP, now: func() time.Time { return time.Now().UTC() }}
}

func dialLDAP(cfg Config) (conn, error) {
	if strings.HasPrefix(strings.ToLower(cfg.URL), "ldaps") {
		tlsCfg := &tls.Config{InsecureSkipVerify: !cfg.TLSVerify} //nolint:gosec // operator-controlled toggle for lab directories
		if cfg.CACert != "" {
			pem, err := os.ReadFile(cfg.CACert)
			if err != nil {
				return nil, fmt.Errorf("directory: read CA cert: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, errors.New("directory: CA cert contains no certificates")
			}
			tlsCfg.RootCAs = pool
		}
		return ldap.DialURL(cfg.URL, ldap.DialWithTLSConfig(tlsCfg))
	}
	return ldap.DialURL(cfg.URL)
}

// service opens a connection bound with the service credentials.
func (c *Client) service() (conn, error) {
	cn, err := c.dial(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("directory: dial: %w", err)
	}
	if err := cn.Bind(c.cfg.BindDN, c.cfg.BindPassword); err != nil {
		_ = cn.Close()
		return nil, fmt.Errorf("directory: service bind: %w", err)
	}
	return cn, nil
}

var userAttrs = []string{
	"sAMAccountName", "displayName", "mail", "mobile", "department", "title",
	"memberOf", "msDS-UserPasswordExpiryTimeComputed", "userAccountControl",
	"accountExpires",
}

// UserDN resolves a user's DN by account name. Returns "" when no entry matches.
func (c *Client) UserDN(username string) (string, error) {
	cn, err := c.service()
	if err != nil {
		return "", err
	}
	defer cn.Close()
	return c.userDN(cn, username)
}

func (c *Client) userDN(cn conn, username string) (string, error) {
	res, err := cn.Search(c.searchReq(c.cfg.BaseDN, ldap.ScopeWholeSubtree,
		accountNameFilter(username), []string{"distinguishedName"}))
	if err != nil {
		return "", fmt.Errorf("directory: search user dn: %w", err)
	}
	if len(res.Entries) == 0 {
		return "", nil
	}
	return res.Entries[0].DN, nil
}

// Authenticate resolves the user's DN and attempts a bind with the given
// password. Any bind failure (wrong password, disabled, locked) yields
// false; the adapter does not distinguish reasons. An error is returned only
// when the service-level lookup itself fails.
func (c *Client) Authenticate(username, password string) (bool, error) {
	userDN, err := c.UserDN(username)
	if err != nil {
		return false, err
	}
	if userDN == "" {
		return false, nil
	}
	cn, err := c.dial(c.cfg)
	if err != nil {
		return false, fmt.Errorf("directory: dial: %w", err)
	}
	defer cn.Close()
	if err := cn.Bind(userDN, password); err != nil {
		log.Printf("directory: user bind failed: username=%s", username)
		return false, nil
	}
	return true, nil
}

// LookupUser returns the typed user record, or nil when no entry matches.
func (c *Client) LookupUser(username string) (*domain.User, error) {
	cn, err := c.service()
	if err != nil {
		return nil, err
	}
	defer cn.Close()
	res, err := cn.Search(c.searchReq(c.cfg.BaseDN, ldap.ScopeWholeSubtree,
		accountNameFilter(username), userAttrs))
	if err != nil {
		return nil, fmt.Errorf("directory: lookup user: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	u := parseUser(res.Entries[0], c.now())
	return &u, nil
}

// SearchUsers lists person users under ouDN (or the base DN when empty).
// enabled nil applies no status constraint.
func (c *Client) SearchUsers(query, ouDN string, enabled *bool) ([]domain.User, error) {
	cn, err := c.service()
	if err != nil {
		return nil, err
	}
	defer cn.Close()
	base := ouDN
	if base == "" {
		base = c.cfg.BaseDN
	}
	res, err := cn.Search(c.searchReq(base, ldap.ScopeWholeSubtree,
		userSearchFilter(query, enabled), userAttrs))
	if err != nil {
		return nil, fmt.Errorf("directory: search users: %w", err)
	}
	now := c.now()
	users := make([]domain.User, 0, len(res.Entries))
	for _, e := range res.Entries {
		users = append(users, parseUser(e, now))
	}
	return users, nil
}

// IsGroupMember checks direct membership by querying the group entry's member
// attribute for the user's DN. Nested groups are not resolved; membership
// through an intermediate group reports false.
func (c *Client) IsGroupMember(userDN, groupDN string) (bool, error) {
	if groupDN == "" || userDN == "" {
		return false, nil
	}
	cn, err := c.service()
	if err != nil {
		return false, err
	}
	defer cn.Close()
	res, err := cn.Search(c.searchReq(groupDN, ldap.ScopeBaseObject,
		memberFilter(userDN), []string{"member"}))
	if err != nil {
		return false, fmt.Errorf("directory: group lookup: %w", err)
	}
	return len(res.Entries) > 0, nil
}

// CreateUser adds a person object under ouDN, sets its password, and enables
// it. When PasswordNeverExpires is requested the object is created disabled
// with the combined flag mask in the same add call; the directory rejects
// setting the policy bit on an enabled, password-less account in a later step.
func (c *Client) CreateUser(accountName, displayName, ouDN, password string, attrs domain.NewUserAttrs) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()

	userDN := fmt.Sprintf("CN=%s,%s", displayName, ouDN)
	req := ldap.NewAddRequest(userDN, nil)
	req.Attribute("objectClass", []string{"top", "person", "organizationalPerson", "user"})
	req.Attribute("sAMAccountName", []string{accountName})
	req.Attribute("displayName", []string{displayName})
	req.Attribute("userPrincipalName", []string{attr.PrincipalName(accountName, c.cfg.BaseDN)})
	if attrs.PasswordNeverExpires {
		mask := attr.UACNormalAccount | attr.UACDisabled | attr.UACNeverExpires
		req.Attribute("userAccountControl", []string{strconv.Itoa(mask)})
	}
	for name, v := range map[string]string{
		"mail": attrs.Mail, "mobile": attrs.Mobile,
		"department": attrs.Department, "title": attrs.Title,
	} {
		if v != "" {
			req.Attribute(name, []string{v})
		}
	}
	if err := cn.Add(req); err != nil {
		log.Printf("directory: create user failed: dn=%s err=%v", userDN, err)
		return fmt.Errorf("directory: add user: %w", err)
	}
	if err := c.setPassword(cn, userDN, password); err != nil {
		return err
	}
	if attrs.ForceChangeAtFirstLogin {
		if err := c.setMustChange(cn, userDN); err != nil {
			return err
		}
	}
	return c.setEnabled(cn, userDN, true)
}

// UpdateUser applies the non-nil changes with replace semantics.
func (c *Client) UpdateUser(userDN string, ch domain.UserChanges) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()

	req := ldap.NewModifyRequest(userDN, nil)
	for name, v := range map[string]*string{
		"displayName": ch.DisplayName, "mail": ch.Mail, "mobile": ch.Mobile,
		"department": ch.Department, "title": ch.Title,
	} {
		if v != nil {
			req.Replace(name, []string{*v})
		}
	}
	if ch.AccountExpiresAt != nil {
		ticks := int64(0)
		if !ch.AccountExpiresAt.IsZero() {
			ticks = attr.TimeToTicks(*ch.AccountExpiresAt)
		}
		req.Replace("accountExpires", []string{strconv.FormatInt(ticks, 10)})
	}
	if ch.PasswordNeverExpires != nil {
		mask, err := c.currentUAC(cn, userDN)
		if err != nil {
			return err
		}
		mask = attr.WithNeverExpires(mask, *ch.PasswordNeverExpires)
		req.Replace("userAccountControl", []string{strconv.Itoa(mask)})
	}
	if len(req.Changes) == 0 {
		return nil
	}
	if err := cn.Modify(req); err != nil {
		log.Printf("directory: update user failed: dn=%s err=%v", userDN, err)
		return fmt.Errorf("directory: modify user: %w", err)
	}
	return nil
}

// SetEnabled flips the account's disabled control bit.
func (c *Client) SetEnabled(userDN string, enabled bool) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()
	return c.setEnabled(cn, userDN, enabled)
}

// ResetPassword writes a new password with the service bind, optionally
// forcing a change at next logon.
func (c *Client) ResetPassword(userDN, newPassword string, forceChange bool) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()
	if err := c.setPassword(cn, userDN, newPassword); err != nil {
		return err
	}
	if forceChange {
		return c.setMustChange(cn, userDN)
	}
	return nil
}

// ErrOldPassword reports that the user bind with the current password was
// rejected during a self-service password change.
var ErrOldPassword = errors.New("directory: old password invalid")

// ChangePassword binds as the user with the old password, then writes the new
// one on that connection. A failed user bind returns ErrOldPassword.
func (c *Client) ChangePassword(username, oldPassword, newPassword string) error {
	userDN, err := c.UserDN(username)
	if err != nil {
		return err
	}
	if userDN == "" {
		return fmt.Errorf("directory: user not found: %s", username)
	}
	cn, err := c.dial(c.cfg)
	if err != nil {
		return fmt.Errorf("directory: dial: %w", err)
	}
	defer cn.Close()
	if err := cn.Bind(userDN, oldPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrOldPassword, err)
	}
	return c.setPassword(cn, userDN, newPassword)
}

// DeleteUser removes the user object.
func (c *Client) DeleteUser(userDN string) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()
	if err := cn.Del(ldap.NewDelRequest(userDN, nil)); err != nil {
		return fmt.Errorf("directory: delete user: %w", err)
	}
	return nil
}

// MoveUser reparents the user under targetOU, keeping its RDN.
func (c *Client) MoveUser(userDN, targetOU string) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()
	req := ldap.NewModifyDNRequest(userDN, attr.FirstRDN(userDN), true, targetOU)
	if err := cn.ModifyDN(req); err != nil {
		return fmt.Errorf("directory: move user: %w", err)
	}
	return nil
}

// ListOUs returns the organizational units under baseDN (or the base DN when empty).
func (c *Client) ListOUs(baseDN string) ([]domain.OU, error) {
	cn, err := c.service()
	if err != nil {
		return nil, err
	}
	defer cn.Close()
	base := baseDN
	if base == "" {
		base = c.cfg.BaseDN
	}
	res, err := cn.Search(c.searchReq(base, ldap.ScopeWholeSubtree,
		"(objectClass=organizationalUnit)", []string{"ou", "description"}))
	if err != nil {
		return nil, fmt.Errorf("directory: list ous: %w", err)
	}
	ous := make([]domain.OU, 0, len(res.Entries))
	for _, e := range res.Entries {
		ous = append(ous, domain.OU{
			DN:          e.DN,
			Name:        e.GetAttributeValue("ou"),
			Description: e.GetAttributeValue("description"),
		})
	}
	return ous, nil
}

// CreateOU adds an organizational unit under parentDN.
func (c *Client) CreateOU(name, parentDN, description string) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()
	req := ldap.NewAddRequest(fmt.Sprintf("OU=%s,%s", name, parentDN), nil)
	req.Attribute("objectClass", []string{"top", "organizationalUnit"})
	req.Attribute("ou", []string{name})
	if description != "" {
		req.Attribute("description", []string{description})
	}
	if err := cn.Add(req); err != nil {
		return fmt.Errorf("directory: add ou: %w", err)
	}
	return nil
}

// UpdateOU renames the OU when name is non-nil and replaces the description
// when description is non-nil.
func (c *Client) UpdateOU(ouDN string, name, description *string) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()
	if name != nil && *name != "" {
		req := ldap.NewModifyDNRequest(ouDN, "OU="+*name, true, "")
		if err := cn.ModifyDN(req); err != nil {
			return fmt.Errorf("directory: rename ou: %w", err)
		}
		if parent := attr.ParentDN(ouDN); parent != "" {
			ouDN = "OU=" + *name + "," + parent
		}
	}
	if description != nil {
		req := ldap.NewModifyRequest(ouDN, nil)
		req.Replace("description", []string{*description})
		if err := cn.Modify(req); err != nil {
			return fmt.Errorf("directory: update ou: %w", err)
		}
	}
	return nil
}

// DeleteOU removes the OU. The directory refuses while children exist; the
// provider message then carries CANT_ON_NON_LEAF for callers to classify.
func (c *Client) DeleteOU(ouDN string) error {
	cn, err := c.service()
	if err != nil {
		return err
	}
	defer cn.Close()
	if err := cn.Del(ldap.NewDelRequest(ouDN, nil)); err != nil {
		return fmt.Errorf("directory: delete ou: %w", err)
	}
	return nil
}

// PasswordPolicy reads the domain-root policy attributes. Returns nil when
// the root object is not readable.
func (c *Client) PasswordPolicy() (*domain.PasswordPolicy, error) {
	cn, err := c.service()
	if err != nil {
		return nil, err
	}
	defer cn.Close()
	res, err := cn.Search(c.searchReq(c.cfg.BaseDN, ldap.ScopeBaseObject,
		"(objectClass=domainDNS)", []string{
			"minPwdLength", "pwdHistoryLength", "maxPwdAge", "minPwdAge",
			"pwdProperties", "lockoutThreshold",
		}))
	if err != nil {
		return nil, fmt.Errorf("directory: read policy: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	e := res.Entries[0]
	props := entryInt(e, "pwdProperties")
	return &domain.PasswordPolicy{
		MinLength:            entryInt(e, "minPwdLength"),
		HistoryLength:        entryInt(e, "pwdHistoryLength"),
		MaxAgeDays:           attr.IntervalTicksToDays(entryInt64(e, "maxPwdAge")),
		MinAgeDays:           attr.IntervalTicksToDays(entryInt64(e, "minPwdAge")),
		Properties:           props,
		LockoutThreshold:     entryInt(e, "lockoutThreshold"),
		ComplexityRequired:   props&0x1 != 0,
		ReversibleEncryption: props&0x80 != 0,
	}, nil
}

// ListPasswordExpiring scans all enabled users and keeps those whose password
// expires within maxDays (inclusive, never negative).
func (c *Client) ListPasswordExpiring(maxDays int) ([]domain.ExpiringUser, error) {
	cn, err := c.service()
	if err != nil {
		return nil, err
	}
	defer cn.Close()
	res, err := cn.Search(c.searchReq(c.cfg.BaseDN, ldap.ScopeWholeSubtree,
		enabledUsersFilter(), []string{
			"sAMAccountName", "displayName", "mail", "mobile",
			"msDS-UserPasswordExpiryTimeComputed",
		}))
	if err != nil {
		return nil, fmt.Errorf("directory: expiry scan: %w", err)
	}
	now := c.now()
	var items []domain.ExpiringUser
	for _, e := range res.Entries {
		expiry := attr.TicksToTime(entryInt64(e, "msDS-UserPasswordExpiryTimeComputed"))
		if expiry == nil {
			continue
		}
		daysLeft := attr.DaysLeft(*expiry, now)
		if daysLeft < 0 || daysLeft > maxDays {
			continue
		}
		items = append(items, domain.ExpiringUser{
			AccountName: e.GetAttributeValue("sAMAccountName"),
			DisplayName: e.GetAttributeValue("displayName"),
			Mail:        e.GetAttributeValue("mail"),
			Mobile:      e.GetAttributeValue("mobile"),
			DaysLeft:    daysLeft,
		})
	}
	return items, nil
}

func (c *Client) searchReq(base string, scope int, filter string, attrs []string) *ldap.SearchRequest {
	return ldap.NewSearchRequest(base, scope, ldap.NeverDerefAliases, 0, 0, false,
		filter, attrs, nil)
}

func (c *Client) currentUAC(cn conn, dn string) (int, error) {
	res, err := cn.Search(c.searchReq(dn, ldap.ScopeBaseObject,
		"(objectClass=*)", []string{"userAccountControl"}))
	if err != nil || len(res.Entries) == 0 {
		if err != nil {
			return 0, fmt.Errorf("directory: read userAccountControl: %w", err)
		}
		return attr.UACNormalAccount, nil
	}
	raw, _ := strconv.Atoi(res.Entries[0].GetAttributeValue("userAccountControl"))
	return attr.NormalizeUAC(raw), nil
}

func (c *Client) setEnabled(cn conn, dn string, enabled bool) error {
	mask, err := c.currentUAC(cn, dn)
	if err != nil {
		return err
	}
	mask = attr.WithDisabled(mask, !enabled)
	req := ldap.NewModifyRequest(dn, nil)
	req.Replace("userAccountControl", []string{strconv.Itoa(mask)})
	if err := cn.Modify(req); err != nil {
		return fmt.Errorf("directory: set enabled: %w", err)
	}
	return nil
}

func (c *Client) setPassword(cn conn, dn, password string) error {
	req := ldap.NewModifyRequest(dn, nil)
	req.Replace("unicodePwd", []string{string(attr.EncodePassword(password))})
	if err := cn.Modify(req); err != nil {
		log.Printf("directory: set password failed: dn=%s err=%v", dn, err)
		return fmt.Errorf("directory: set password: %w", err)
	}
	return nil
}

func (c *Client) setMustChange(cn conn, dn string) error {
	req := ldap.NewModifyRequest(dn, nil)
	req.Replace("pwdLastSet", []string{"0"})
	if err := cn.Modify(req); err != nil {
		return fmt.Errorf("directory: set pwdLastSet: %w", err)
	}
	return nil
}

// parseUser maps a directory entry onto the typed record. Absent attributes
// stay zero; the control mask defaults to a normal enabled account.
func parseUser(e *ldap.Entry, now time.Time) domain.User {
	uacRaw, _ := strconv.Atoi(e.GetAttributeValue("userAccountControl"))
	mask := attr.NormalizeUAC(uacRaw)

	u := domain.User{
		DN:                   e.DN,
		AccountName:          e.GetAttributeValue("sAMAccountName"),
		DisplayName:          e.GetAttributeValue("displayName"),
		Mail:                 e.GetAttributeValue("mail"),
		Mobile:               e.GetAttributeValue("mobile"),
		Department:           e.GetAttributeValue("department"),
		Title:                e.GetAttributeValue("title"),
		Groups:               e.GetAttributeValues("memberOf"),
		AccountControl:       mask,
		Enabled:              !attr.IsDisabled(mask),
		PasswordNeverExpires: attr.NeverExpires(mask),
	}
	if expiry := attr.TicksToTime(entryInt64(e, "msDS-UserPasswordExpiryTimeComputed")); expiry != nil {
		u.PasswordExpiresAt = expiry
		days := attr.DaysLeft(*expiry, now)
		if days < 0 {
			days = 0
		}
		u.DaysLeft = &days
	}
	u.AccountExpiresAt = attr.TicksToTime(entryInt64(e, "accountExpires"))
	return u
}

func entryInt(e *ldap.Entry, name string) int {
	n, _ := strconv.Atoi(e.GetAttributeValue(name))
	return n
}

func entryInt64(e *ldap.Entry, name string) int64 {
	n, _ := strconv.ParseInt(e.GetAttributeValue(name), 10, 64)
	return n
}
