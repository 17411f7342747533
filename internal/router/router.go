package router

import (
	"net/http"

	"github.com/travelcrm/backend/internal/auth"
	"github.com/travelcrm/backend/internal/dashboard"
	"github.com/travelcrm/backend/internal/handlers"
	"github.com/travelcrm/backend/internal/registry"
	"github.com/travelcrm/backend/internal/services"
)

const base = "/api/v1"

// Deps are the handlers and middleware the API is assembled from.
type Deps struct {
	Auth      *auth.Handler
	Registry  *registry.Handler
	Finance   *handlers.FinanceHandler
	Dashboard *dashboard.Handler

	// RequireIdentity authenticates the caller; Validate checks a body against a named schema.
	RequireIdentity func(http.Handler) http.Handler
	Validate        func(schema string) func(http.Handler) http.Handler
}

// New returns an http.Handler that serves the API under /api/v1.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	public := func(pattern, schema string, h http.HandlerFunc) {
		mux.Handle(pattern, d.Validate(schema)(h))
	}
	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, d.RequireIdentity(h))
	}
	privateBody := func(pattern, schema string, h http.HandlerFunc) {
		mux.Handle(pattern, d.RequireIdentity(d.Validate(schema)(h)))
	}

	public("POST "+base+"/auth/register", services.SchemaRegister, d.Auth.Register)
	public("POST "+base+"/auth/login", services.SchemaLogin, d.Auth.Login)

	private("GET "+base+"/finance/overall-summary", d.Dashboard.OverallSummary)

	// {kind} is suppliers, vehicles or hotels; handlers 404 anything else.
	privateBody("POST "+base+"/{kind}", services.SchemaCounterpartyCreate, d.Registry.Create)
	private("GET "+base+"/{kind}", d.Registry.List)
	private("GET "+base+"/{kind}/{id}", d.Registry.Get)

	private("GET "+base+"/{kind}/{id}/financial-summary", d.Finance.Summary)
	privateBody("POST "+base+"/{kind}/{id}/lead-costs", services.SchemaCostCreate, d.Finance.RecordCost)
	private("GET "+base+"/{kind}/{id}/lead-costs", d.Finance.ListCosts)
	privateBody("POST "+base+"/{kind}/{id}/financial-transactions", services.SchemaObligationCreate, d.Finance.RecordObligation)
	private("GET "+base+"/{kind}/{id}/financial-transactions", d.Finance.ListObligations)
	privateBody("POST "+base+"/{kind}/{id}/financial-transactions/{transactionId}/payment", services.SchemaPaymentRecord, d.Finance.RecordPayment)

	return mux
}
