package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/testutil"
)

func TestIMBotService_CreateInactive(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewIMBotService(db)

	bot, err := svc.Create(&CreateIMBotRequest{Name: "ops", Type: "slack", Webhook: "https://hooks.example.com/a"})
	require.NoError(t, err)

	got, err := svc.GetByID(bot.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive, "is_active=false must survive the column default")
}

func TestIMBotService_UpdatePartial(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewIMBotService(db)

	bot, err := svc.Create(&CreateIMBotRequest{Name: "ops", Type: "slack", Webhook: "https://hooks.example.com/a", IsActive: true, DigestEnabled: true})
	require.NoError(t, err)

	off := false
	updated, err := svc.Update(bot.ID, &UpdateIMBotRequest{DigestEnabled: &off, Secret: "s3"})
	require.NoError(t, err)
	require.Equal(t, "ops", updated.Name)
	require.True(t, updated.IsActive)
	require.False(t, updated.DigestEnabled)
	require.Equal(t, "s3", updated.Secret)

	_, err = svc.Update(999, &UpdateIMBotRequest{Name: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIMBotService_ListAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewIMBotService(db)

	for _, req := range []CreateIMBotRequest{
		{Name: "finance-feishu", Type: "feishu", Webhook: "https://open.feishu.cn/hook/1", IsActive: true},
		{Name: "ops-slack", Type: "slack", Webhook: "https://hooks.slack.com/1", IsActive: true},
		{Name: "ops-ding", Type: "dingtalk", Webhook: "https://oapi.dingtalk.com/robot/send", IsActive: false},
	} {
		_, err := svc.Create(&req)
		require.NoError(t, err)
	}

	active := true
	page, err := svc.List(&IMBotListRequest{Name: "ops", IsActive: &active})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, "ops-slack", page.Items[0].Name)

	page, err = svc.List(&IMBotListRequest{Type: "dingtalk"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)

	id := page.Items[0].ID
	require.NoError(t, svc.Delete(id))
	require.ErrorIs(t, svc.Delete(id), ErrNotFound)
}
