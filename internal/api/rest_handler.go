package api

import (
	"bank_manager/internal/currency"
	"bank_manager/internal/domain"
	"bank_manager/internal/processor"
	"bank_manager/internal/repository"
	"bank_manager/internal/service"
	"bank_manager/internal/session"
	"bank_manager/pkg/validator"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

const adminPasswordHeader = "X-Admin-Password"

type APIHandler struct {
	directory      *service.Directory
	session        *session.Session
	admin          *session.AdminGate
	processor      *processor.TransactionProcessor
	validator      *validator.Validator
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(
	directory *service.Directory,
	sess *session.Session,
	admin *session.AdminGate,
	processor *processor.TransactionProcessor,
	requestTimeout time.Duration,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return &APIHandler{
		directory:      directory,
		session:        sess,
		admin:          admin,
		processor:      processor,
		validator:      validator.New(),
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

type RegisterAccountRequest struct {
	Kind           string           `json:"kind"`
	ID             string           `json:"id"`
	Holder         string           `json:"holder"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
	Credential     string           `json:"credential"`
}

type LoginRequest struct {
	ID         string `json:"id"`
	Credential string `json:"credential"`
}

type LogoutRequest struct {
	Confirm bool `json:"confirm"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
}

type SessionResponse struct {
	Status    string `json:"status"`
	AccountID string `json:"account_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type TransactionResponse struct {
	*domain.Transaction
	Message string `json:"message,omitempty"`
}

type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  domain.Currency `json:"currency"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *APIHandler) RegisterAccountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req RegisterAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.validator.ValidateRegistration(validator.Registration{
		Kind:           req.Kind,
		ID:             req.ID,
		Holder:         req.Holder,
		InitialBalance: req.InitialBalance,
		Credential:     req.Credential,
	}); err != nil {
		h.sendFailure(w, err)
		return
	}

	account, err := h.directory.Create(ctx, req.Kind, req.ID, req.Holder, *req.InitialBalance, req.Credential)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	h.sendJSON(w, account, http.StatusCreated)
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	outcome, err := h.session.Login(r.Context(), req.ID, req.Credential)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	h.sendSession(w, string(outcome))
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	outcome := h.session.Logout(r.Context(), func() bool { return req.Confirm })
	h.sendSession(w, string(outcome))
}

func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	h.sendSession(w, "")
}

func (h *APIHandler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.amountOperation(w, r, h.processor.Deposit, "Successfully deposited")
}

func (h *APIHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.amountOperation(w, r, h.processor.Withdraw, "Successfully withdrawn")
}

func (h *APIHandler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	accountID, err := h.session.HandleClientAction(ctx)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	var req TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.processor.Transfer(ctx, accountID, req.RecipientID, req.Amount)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	h.sendJSON(w, TransactionResponse{Transaction: tx, Message: "Transfer successful"}, http.StatusOK)
}

func (h *APIHandler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	accountID, err := h.session.HandleClientAction(ctx)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	balance, cur, err := h.processor.CheckBalance(ctx, accountID)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	h.sendJSON(w, BalanceResponse{AccountID: accountID, Balance: balance, Currency: cur}, http.StatusOK)
}

func (h *APIHandler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts := h.directory.ListAll(r.Context())
	if accounts == nil {
		accounts = []domain.Account{}
	}
	h.sendJSON(w, accounts, http.StatusOK)
}

func (h *APIHandler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.directory.Remove(r.Context(), id); err != nil {
		h.sendFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.directory.Count(r.Context())
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	response := map[string]interface{}{
		"status":    "healthy",
		"accounts":  accounts,
		"timestamp": time.Now().UTC(),
	}
	h.sendJSON(w, response, http.StatusOK)
}

type amountFunc func(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error)

func (h *APIHandler) amountOperation(w http.ResponseWriter, r *http.Request, op amountFunc, message string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	accountID, err := h.session.HandleClientAction(ctx)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := op(ctx, accountID, req.Amount)
	if err != nil {
		h.sendFailure(w, err)
		return
	}

	h.sendJSON(w, TransactionResponse{Transaction: tx, Message: message}, http.StatusOK)
}

func (h *APIHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.admin.Authenticate(r.Context(), r.Header.Get(adminPasswordHeader)); err != nil {
			h.sendFailure(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return false
	}
	return true
}

func (h *APIHandler) sendSession(w http.ResponseWriter, message string) {
	state := h.session.State()
	h.sendJSON(w, SessionResponse{
		Status:    state.Status.String(),
		AccountID: state.AccountID,
		Message:   message,
	}, http.StatusOK)
}

// statusFor maps core errors onto HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, validator.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, validator.ErrMissingField):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrInvalidAccountKind):
		return http.StatusBadRequest, "INVALID_ACCOUNT_KIND"
	case errors.Is(err, session.ErrAuthenticationFailed):
		return http.StatusUnauthorized, "AUTHENTICATION_FAILED"
	case errors.Is(err, session.ErrAdminAuthenticationFailed):
		return http.StatusUnauthorized, "ADMIN_AUTHENTICATION_FAILED"
	case errors.Is(err, session.ErrNotLoggedIn):
		return http.StatusForbidden, "NOT_LOGGED_IN"
	case errors.Is(err, processor.ErrRecipientNotFound):
		return http.StatusNotFound, "RECIPIENT_NOT_FOUND"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, "DUPLICATE_IDENTIFIER"
	case errors.Is(err, repository.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"
	case errors.Is(err, currency.ErrUnsupportedConversion):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_CONVERSION"
	case errors.Is(err, validator.ErrSelfTransfer):
		return http.StatusUnprocessableEntity, "SELF_TRANSFER"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR"
	}
}

func (h *APIHandler) sendFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	h.sendError(w, err.Error(), status, code)
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", h.HealthCheckHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/accounts", h.RegisterAccountHandler)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.SessionHandler)
			r.Post("/login", h.LoginHandler)
			r.Post("/logout", h.LogoutHandler)
		})

		r.Route("/client", func(r chi.Router) {
			r.Post("/deposit", h.DepositHandler)
			r.Post("/withdraw", h.WithdrawHandler)
			r.Post("/transfer", h.TransferHandler)
			r.Get("/balance", h.BalanceHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/accounts", h.ListAccountsHandler)
			r.Delete("/accounts/{id}", h.DeleteAccountHandler)
		})
	})

	return r
}
