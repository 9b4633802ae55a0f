package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/middleware"
	"github.com/eaglebank/assistant/internal/models"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	Transfer(ctx context.Context, cmd cqrs.TransferCommand) (*models.TransferReceipt, error)
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error)
	GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.BalanceView, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type TransferRequest struct {
	FromAccount string          `json:"fromAccount" validate:"required"`
	ToAccount   string          `json:"toAccount" validate:"required,nefield=FromAccount"`
	Amount      decimal.Decimal `json:"amount"`
}

type BalanceRequest struct {
	AccountType   string `form:"accountType" validate:"required,oneof=checking savings credit"`
	AccountNumber string `form:"accountNumber" validate:"omitempty,numeric"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	views, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to list accounts")
		return
	}

	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *AccountHandler) GetBalance(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req BalanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.queries.GetBalance(c.Request.Context(), cqrs.GetBalanceQuery{
		UserID:        userID,
		AccountType:   models.AccountType(req.AccountType),
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to get balance")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) Transfer(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	if !req.Amount.IsPositive() {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   "amount",
			Message: "Value must be greater than 0",
			Type:    "gt",
		}})
		return
	}

	receipt, err := h.commands.Transfer(c.Request.Context(), cqrs.TransferCommand{
		UserID:      userID,
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to transfer funds")
		return
	}

	c.JSON(http.StatusOK, receipt)
}
