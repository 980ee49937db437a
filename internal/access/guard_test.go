package access

import (
	"testing"

	"workshop/internal/model"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPermitTable(t *testing.T) {
	cases := []struct {
		role   string
		action Action
		want   bool
	}{
		{model.RoleManager, OrderAdvance, true},
		{model.RoleAdmin, OrderAdvance, true},
		{model.RoleWorker, OrderAdvance, false},
		{model.RoleWholesaler, OrderAdvance, false},
		{model.RoleWholesaler, OrderCreate, true},
		{model.RoleWorker, OrderCreate, false},
		{model.RoleManager, StockAdjust, true},
		{model.RoleWorker, StockAdjust, false},
		{model.RoleWorker, WorkLogStart, true},
		{model.RoleManager, WorkLogStart, false},
		{model.RoleAdmin, WorkLogComplete, true},
		{model.RoleAdmin, SalaryPay, true},
		{model.RoleManager, SalaryPay, false},
		{model.RoleWorker, SalaryPay, false},
		{model.RoleWorker, SalaryView, true},
		{model.RoleSystem, OrderAdvance, false},
		{model.RoleAdmin, ReportRead, true},
		{model.RoleManager, ReportRead, false},
		{"", OrderRead, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Permit(tc.role, tc.action), "%s %s", tc.role, tc.action)
	}
}

func TestPermitDeniesUnknownAction(t *testing.T) {
	for _, role := range model.Roles {
		require.False(t, Permit(role, Action("orders.teleport")))
	}
}

func TestAuthorize(t *testing.T) {
	err := Authorize(Actor{ID: uuid.New(), Role: model.RoleWorker}, SalaryPay)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, Authorize(Actor{ID: uuid.New(), Role: model.RoleAdmin}, SalaryPay))
}

func TestEveryActionIsInTheTable(t *testing.T) {
	for _, a := range Actions() {
		require.NotEmpty(t, permissions[a], a)
	}
	require.Len(t, permissions, len(Actions()))
}

func TestHomeFor(t *testing.T) {
	require.Equal(t, "/admin/dashboard", HomeFor(model.RoleAdmin))
	require.Equal(t, "/manager/orders", HomeFor(model.RoleManager))
	require.Equal(t, "/employee/tasks", HomeFor(model.RoleWorker))
	require.Equal(t, "/wholesaler/catalog", HomeFor(model.RoleWholesaler))
	require.Equal(t, "/login", HomeFor("ghost"))
}

func TestCanNavigate(t *testing.T) {
	require.True(t, CanNavigate(model.RoleAdmin, "/manager/orders/42"))
	require.True(t, CanNavigate(model.RoleWorker, "/employee/salary"))
	require.False(t, CanNavigate(model.RoleWorker, "/admin/dashboard"))
	require.False(t, CanNavigate(model.RoleWholesaler, "/manager"))
	require.False(t, CanNavigate(model.RoleManager, "/administrator"))
	require.False(t, CanNavigate(model.RoleAdmin, "/nowhere"))
	require.True(t, CanNavigate("", "/login"))
}

func TestActorOwns(t *testing.T) {
	id := uuid.New()
	require.True(t, Actor{ID: id}.Owns(id))
	require.False(t, Actor{}.Owns(uuid.Nil))
}
