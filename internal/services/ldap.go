package services

import (
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/taskhive/backend/internal/config"
)

// LDAPService authenticates admin accounts against a directory. Settings stored in
// system_configs win over the file config so they can be changed without a restart.
type LDAPService struct {
	configSvc *SystemConfigService
	fallback  config.LDAPConfig
}

func NewLDAPService(configSvc *SystemConfigService, fallback config.LDAPConfig) *LDAPService {
	return &LDAPService{configSvc: configSvc, fallback: fallback}
}

func (s *LDAPService) settings() config.LDAPConfig {
	cfg := s.fallback
	if s.configSvc == nil {
		return cfg
	}
	cfg.Enabled = s.configSvc.GetBool("ldap_enabled", cfg.Enabled)
	cfg.Host = s.configSvc.GetWithDefault("ldap_host", cfg.Host)
	cfg.Port = s.configSvc.GetInt("ldap_port", cfg.Port)
	cfg.BaseDN = s.configSvc.GetWithDefault("ldap_base_dn", cfg.BaseDN)
	cfg.BindDN = s.configSvc.GetWithDefault("ldap_bind_dn", cfg.BindDN)
	cfg.BindPassword = s.configSvc.GetWithDefault("ldap_bind_password", cfg.BindPassword)
	cfg.UserFilter = s.configSvc.GetWithDefault("ldap_user_filter", cfg.UserFilter)
	cfg.UseSSL = s.configSvc.GetBool("ldap_use_ssl", cfg.UseSSL)
	if cfg.Host == "" {
		cfg.Host = s.fallback.Host
	}
	if cfg.UserFilter == "" {
		cfg.UserFilter = "(uid=%s)"
	}
	return cfg
}

func (s *LDAPService) IsEnabled() bool {
	cfg := s.settings()
	return cfg.Enabled && cfg.Host != ""
}

// Authenticate authenticates a user against LDAP
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	cfg := s.settings()
	if !cfg.Enabled {
		return nil, fmt.Errorf("LDAP is not enabled")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var conn *ldap.Conn
	var err error

	if cfg.UseSSL {
		conn, err = ldap.DialTLS("tcp", addr, &tls.Config{ServerName: cfg.Host})
	} else {
		conn, err = ldap.Dial("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()

	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	searchRequest := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf(cfg.UserFilter, ldap.EscapeFilter(username)),
		[]string{"dn", "cn", "mail", "uid", "sAMAccountName"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	switch len(result.Entries) {
	case 0:
		return nil, ErrInvalidLogin
	case 1:
	default:
		return nil, fmt.Errorf("multiple users found in LDAP")
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, ErrInvalidLogin
	}

	user := &LDAPUser{
		DN:       entry.DN,
		Username: entry.GetAttributeValue("uid"),
		Email:    entry.GetAttributeValue("mail"),
		Nickname: entry.GetAttributeValue("cn"),
	}
	// Active Directory
	if user.Username == "" {
		user.Username = entry.GetAttributeValue("sAMAccountName")
	}
	if user.Username == "" {
		user.Username = username
	}

	return user, nil
}

type LDAPUser struct {
	DN       string
	Username string
	Email    string
	Nickname string
}
