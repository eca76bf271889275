package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-ldap/ldap/v3"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

var personAttributes = []string{"uid", "cn", "mail", "telephoneNumber"}

// LDAPResolver resolves recipients against an LDAP directory. Each Select
// call binds a fresh connection; submissions are infrequent enough that
// pooling is not worth the stale-connection handling.
type LDAPResolver struct {
	cfg        config.LDAPConfig
	adminGroup string
	log        *slog.Logger
}

// NewLDAPResolver builds a resolver for the configured directory server.
func NewLDAPResolver(cfg config.DirectoryConfig, log *slog.Logger) *LDAPResolver {
	return &LDAPResolver{
		cfg:        cfg.LDAP,
		adminGroup: cfg.AdminGroup,
		log:        log.With("component", "ldap_directory"),
	}
}

// Select looks up each username and expands each group into its members,
// falling back to the administrator group when neither is given.
func (r *LDAPResolver) Select(ctx context.Context, users, groups []string) ([]models.Recipient, error) {
	if len(users) == 0 && len(groups) == 0 {
		groups = []string{r.adminGroup}
	}

	conn, err := r.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var recipients []models.Recipient
	for _, username := range users {
		recipient, err := r.userByUID(conn, username)
		if err != nil {
			return nil, err
		}
		if recipient == nil {
			r.log.Warn("user not found in directory", "username", username)
			continue
		}
		recipients = append(recipients, *recipient)
	}

	for _, group := range groups {
		members, err := r.membersOfGroup(conn, group)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, members...)
	}

	return dedupe(recipients), nil
}

func (r *LDAPResolver) connect() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ldap server: %w", err)
	}
	if err := conn.Bind(r.cfg.BindDN, r.cfg.BindPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind to ldap server: %w", err)
	}
	return conn, nil
}

func (r *LDAPResolver) userByUID(conn *ldap.Conn, username string) (*models.Recipient, error) {
	if username == "" {
		return nil, nil
	}

	filter := fmt.Sprintf("(&(objectClass=inetOrgPerson)(uid=%s))", ldap.EscapeFilter(username))
	result, err := conn.Search(searchRequest(r.cfg.BaseDN, filter))
	if err != nil {
		return nil, fmt.Errorf("ldap user search failed: %w", err)
	}
	if len(result.Entries) == 0 {
		return nil, nil
	}
	recipient := recipientFromEntry(result.Entries[0])
	return &recipient, nil
}

func (r *LDAPResolver) membersOfGroup(conn *ldap.Conn, group string) ([]models.Recipient, error) {
	if group == "" {
		return nil, nil
	}

	filter := fmt.Sprintf("(&(objectClass=groupOfNames)(cn=%s))", ldap.EscapeFilter(group))
	result, err := conn.Search(searchRequest(r.cfg.BaseDN, filter))
	if err != nil {
		return nil, fmt.Errorf("ldap group search failed: %w", err)
	}
	if len(result.Entries) == 0 {
		r.log.Warn("group not found in directory", "group", group)
		return nil, nil
	}

	var members []models.Recipient
	for _, memberDN := range result.Entries[0].GetAttributeValues("member") {
		memberResult, err := conn.Search(searchRequest(memberDN, "(objectClass=inetOrgPerson)"))
		if err != nil {
			r.log.Warn("failed to resolve group member", "dn", memberDN, "error", err)
			continue
		}
		if len(memberResult.Entries) == 0 {
			continue
		}
		members = append(members, recipientFromEntry(memberResult.Entries[0]))
	}
	return members, nil
}

func searchRequest(baseDN, filter string) *ldap.SearchRequest {
	return ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		personAttributes,
		nil,
	)
}

func recipientFromEntry(entry *ldap.Entry) models.Recipient {
	return models.Recipient{
		Username: entry.GetAttributeValue("uid"),
		Name:     entry.GetAttributeValue("cn"),
		Email:    entry.GetAttributeValue("mail"),
		Phone:    entry.GetAttributeValue("telephoneNumber"),
	}
}
