// Package access is the single gate every workflow entry point consults before
// touching state. Decisions come from a static table; anything not listed is denied.
package access

import (
	"strings"

	"workshop/internal/model"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
)

// Action names a lifecycle operation or read that an actor may request
type Action string

const (
	OrderCreate  Action = "orders.create"
	OrderRead    Action = "orders.read"
	OrderAdvance Action = "orders.advance"
	OrderCancel  Action = "orders.cancel"
	OrderDelete  Action = "orders.delete"

	ProductRead      Action = "products.read"
	ProductWrite     Action = "products.write"
	StockAdjust      Action = "products.adjust_stock"
	StockHistory     Action = "products.stock_history"
	ProductionLaunch Action = "products.launch_production"
	WorkLogStart     Action = "production.start"
	WorkLogComplete  Action = "production.complete"
	WorkLogRead      Action = "production.read"
	TasksMine        Action = "production.tasks_mine"
	SalaryView       Action = "salaries.view"
	SalaryPay        Action = "salaries.pay"
	SalaryAdvance    Action = "salaries.advance"
	AuditRead        Action = "audit.read"
	ReportRead       Action = "reports.read"
)

// Actor is the authenticated caller as resolved by the identity layer
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// Owns reports whether the actor is the given person. Used for self-scoped actions.
func (a Actor) Owns(id uuid.UUID) bool {
	return a.ID != uuid.Nil && a.ID == id
}

var permissions = map[Action][]string{
	OrderCreate:  {model.RoleAdmin, model.RoleManager, model.RoleWholesaler},
	OrderRead:    {model.RoleAdmin, model.RoleManager, model.RoleWholesaler},
	OrderAdvance: {model.RoleAdmin, model.RoleManager},
	OrderCancel:  {model.RoleAdmin, model.RoleManager},
	OrderDelete:  {model.RoleAdmin, model.RoleManager},

	ProductRead:      {model.RoleAdmin, model.RoleManager, model.RoleWorker, model.RoleWholesaler},
	ProductWrite:     {model.RoleAdmin, model.RoleManager},
	StockAdjust:      {model.RoleAdmin, model.RoleManager},
	StockHistory:     {model.RoleAdmin, model.RoleManager},
	ProductionLaunch: {model.RoleAdmin, model.RoleManager},

	WorkLogStart:    {model.RoleAdmin, model.RoleWorker},
	WorkLogComplete: {model.RoleAdmin, model.RoleWorker},
	WorkLogRead:     {model.RoleAdmin, model.RoleManager, model.RoleWorker},
	TasksMine:       {model.RoleAdmin, model.RoleWorker},

	SalaryView:    {model.RoleAdmin, model.RoleWorker},
	SalaryPay:     {model.RoleAdmin},
	SalaryAdvance: {model.RoleAdmin},

	AuditRead:  {model.RoleAdmin},
	ReportRead: {model.RoleAdmin},
}

// Permit reports whether role may perform action. Unknown actions and roles are denied.
func Permit(role string, action Action) bool {
	for _, r := range permissions[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns a Forbidden error unless the actor's role permits action
func Authorize(actor Actor, action Action) error {
	if !Permit(actor.Role, action) {
		return apperror.Forbidden("role %q may not perform %s", actor.Role, action)
	}
	return nil
}

// AllowedActions lists every action the role may perform, in table order of Actions
func AllowedActions(role string) []Action {
	var out []Action
	for _, a := range Actions() {
		if Permit(role, a) {
			out = append(out, a)
		}
	}
	return out
}

// Actions returns all actions known to the guard
func Actions() []Action {
	return []Action{
		OrderCreate, OrderRead, OrderAdvance, OrderCancel, OrderDelete,
		ProductRead, ProductWrite, StockAdjust, StockHistory, ProductionLaunch,
		WorkLogStart, WorkLogComplete, WorkLogRead, TasksMine,
		SalaryView, SalaryPay, SalaryAdvance,
		AuditRead, ReportRead,
	}
}

var homes = map[string]string{
	model.RoleAdmin:      "/admin/dashboard",
	model.RoleManager:    "/manager/orders",
	model.RoleWorker:     "/employee/tasks",
	model.RoleWholesaler: "/wholesaler/catalog",
}

// HomeFor returns where a freshly authenticated actor lands. Unknown roles go to /login.
func HomeFor(role string) string {
	if home, ok := homes[role]; ok {
		return home
	}
	return "/login"
}

var sections = []struct {
	prefix string
	roles  []string
}{
	{"/admin", []string{model.RoleAdmin}},
	{"/manager", []string{model.RoleManager, model.RoleAdmin}},
	{"/employee", []string{model.RoleWorker, model.RoleAdmin}},
	{"/wholesaler", []string{model.RoleWholesaler, model.RoleAdmin}},
}

// CanNavigate reports whether role may open the given navigation target.
// /login is public; paths outside every known section are denied.
func CanNavigate(role, path string) bool {
	if path == "/login" {
		return true
	}
	for _, s := range sections {
		if path != s.prefix && !strings.HasPrefix(path, s.prefix+"/") {
			continue
		}
		for _, r := range s.roles {
			if r == role {
				return true
			}
		}
		return false
	}
	return false
}
