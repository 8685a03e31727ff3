package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tipmasterapp/tipmaster/app/models"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestPlanTypeOrNone(t *testing.T) {
	assert.Equal(t, models.PlanNone, planTypeOrNone(nil))

	empty := ""
	assert.Equal(t, models.PlanNone, planTypeOrNone(&empty))

	monthly := models.PlanMonthly
	assert.Equal(t, models.PlanMonthly, planTypeOrNone(&monthly))
}

func TestAccountAvatarFallsBackToGravatar(t *testing.T) {
	withAvatar := &models.User{Email: "pro@example.com", AvatarURL: "https://cdn.example.com/a.png"}
	assert.Equal(t, "https://cdn.example.com/a.png", accountAvatar(withAvatar))

	withoutAvatar := &models.User{Email: "pro@example.com"}
	url := accountAvatar(withoutAvatar)
	assert.Contains(t, url, "gravatar.com/avatar/")
	assert.Contains(t, url, "s=80")
}
