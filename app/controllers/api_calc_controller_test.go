package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipmasterapp/tipmaster/internal/pkg/calc"
	"github.com/tipmasterapp/tipmaster/internal/pkg/entitlements"
	"github.com/tipmasterapp/tipmaster/internal/pkg/usercontext"
)

func newCalcTestApp(ctx usercontext.UserContext) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", ctx)
		return c.Next()
	})
	app.Post("/calc", HandleCalculate)
	app.Get("/calc/limits", HandleCalcLimits)
	return app
}

func postCalc(t *testing.T, app *fiber.App, input calc.Input) *http.Response {
	t.Helper()

	body, err := json.Marshal(input)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/calc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHandleCalculateEvenSplit(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{})

	resp := postCalc(t, app, calc.Input{
		BillAmount: 100,
		TipPercent: 20,
		People:     4,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result calc.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 120.0, result.Total)
	require.Len(t, result.PerPerson, 4)
	assert.Equal(t, 30.0, result.PerPerson[0])
}

func TestHandleCalculateAdvancedModeRequiresPro(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{Plan: string(entitlements.PlanFree)})

	resp := postCalc(t, app, calc.Input{
		BillAmount:     60,
		People:         2,
		AdvancedMode:   true,
		IndividualTips: []float64{10, 20},
	})
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
}

func TestHandleCalculatePartySizeGate(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{Plan: string(entitlements.PlanFree)})

	resp := postCalc(t, app, calc.Input{
		BillAmount: 500,
		TipPercent: 10,
		People:     entitlements.MaxPartySize(entitlements.PlanFree) + 1,
	})
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
}

func TestHandleCalculateAdvancedModeForPro(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{Plan: string(entitlements.PlanPro)})

	resp := postCalc(t, app, calc.Input{
		BillAmount:     100,
		People:         2,
		AdvancedMode:   true,
		IndividualTips: []float64{10, 30},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result calc.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 40.0, result.TipAmount)
	require.Len(t, result.PerPerson, 2)
}

func TestHandleCalculateTipCountMismatch(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{Plan: string(entitlements.PlanPro)})

	resp := postCalc(t, app, calc.Input{
		BillAmount:     100,
		People:         3,
		AdvancedMode:   true,
		IndividualTips: []float64{10, 30},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "individual tips")
}

func TestHandleCalculateMalformedBody(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{})

	req := httptest.NewRequest(http.MethodPost, "/calc", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleCalcLimitsAnonymous(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{})

	req := httptest.NewRequest(http.MethodGet, "/calc/limits", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var limits struct {
		Plan         string `json:"plan"`
		AdvancedMode bool   `json:"advanced_mode"`
		MaxPartySize int    `json:"max_party_size"`
		LoggedIn     bool   `json:"logged_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&limits))
	assert.Equal(t, string(entitlements.PlanFree), limits.Plan)
	assert.False(t, limits.AdvancedMode)
	assert.Equal(t, entitlements.MaxPartySize(entitlements.PlanFree), limits.MaxPartySize)
	assert.False(t, limits.LoggedIn)
}

func TestHandleCalcLimitsPro(t *testing.T) {
	app := newCalcTestApp(usercontext.UserContext{UserID: 7, IsLoggedIn: true, Plan: string(entitlements.PlanPro)})

	req := httptest.NewRequest(http.MethodGet, "/calc/limits", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var limits struct {
		Plan         string `json:"plan"`
		AdvancedMode bool   `json:"advanced_mode"`
		MaxPartySize int    `json:"max_party_size"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&limits))
	assert.Equal(t, string(entitlements.PlanPro), limits.Plan)
	assert.True(t, limits.AdvancedMode)
	assert.Equal(t, entitlements.MaxPartySize(entitlements.PlanPro), limits.MaxPartySize)
}
