package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/testutil"
)

func TestSystemConfig_TypedGetters(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewSystemConfigService(db)

	require.Equal(t, 7, svc.GetInt("missing", 7))
	require.True(t, svc.GetBool("missing", true))

	require.NoError(t, svc.Set("answer", "42"))
	require.NoError(t, svc.Set("answer", "43"))
	require.Equal(t, 43, svc.GetInt("answer", 0))
	require.Equal(t, 43.0, svc.GetFloat("answer", 0))

	require.NoError(t, svc.Set("flag", "not-a-bool"))
	require.False(t, svc.GetBool("flag", false), "unparseable values fall back to the default")
}

func TestSystemConfig_SeededDefaults(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, models.SeedSystemConfigs(db))
	svc := NewSystemConfigService(db)

	require.Equal(t, 98.0, svc.AutoApproveThreshold(50))
	require.True(t, svc.GetBool("triage_enabled", false))

	digest := svc.GetDigestSettings()
	require.False(t, digest.Enabled)
	require.Equal(t, "18:00", digest.Time)
	require.Equal(t, "US", digest.Country)

	ldap := svc.GetLDAPConfig()
	require.False(t, ldap.Enabled)
	require.Equal(t, 389, ldap.Port)
	require.Equal(t, "(uid=%s)", ldap.UserFilter)
	require.False(t, ldap.PasswordSet)
}

func TestSystemConfig_UpdateGroup(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, models.SeedSystemConfigs(db))
	svc := NewSystemConfigService(db)

	require.NoError(t, svc.UpdateGroup("digest", map[string]string{
		"daily_digest_enabled": "true",
		"daily_digest_time":    "09:30",
	}))
	digest := svc.GetDigestSettings()
	require.True(t, digest.Enabled)
	require.Equal(t, "09:30", digest.Time)

	err := svc.UpdateGroup("digest", map[string]string{"ldap_host": "evil"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "keys from another group are refused")
	require.Equal(t, "", svc.GetWithDefault("ldap_host", ""))

	items, err := svc.GetByGroup("triage")
	require.NoError(t, err)
	require.Len(t, items, 2)
}
