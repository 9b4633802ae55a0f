package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/middleware"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/utils"
)

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	FindAllForUser(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error)
	SpendingByCategory(ctx context.Context, q cqrs.SpendingByCategoryQuery) ([]models.CategorySpend, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

type CreateTransactionRequest struct {
	AccountType   string          `json:"accountType" validate:"required,oneof=checking savings credit"`
	AccountNumber string          `json:"accountNumber" validate:"required,numeric"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category" validate:"required,max=64"`
	Description   string          `json:"description" validate:"max=255"`
	Date          string          `json:"date"`
}

type ListTransactionsRequest struct {
	AccountType string `form:"accountType" validate:"omitempty,oneof=checking savings credit"`
	From        string `form:"from"`
	To          string `form:"to"`
	Category    string `form:"category"`
}

type SpendingRequest struct {
	From        string `form:"from" validate:"required"`
	To          string `form:"to" validate:"required"`
	AccountType string `form:"accountType" validate:"omitempty,oneof=checking savings credit"`
	Categories  string `form:"categories"`
	Min         string `form:"min" validate:"omitempty,numeric"`
}

type ListTransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

type SpendingResponse struct {
	SpendingByCategory []models.CategorySpend `json:"spendingByCategory"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := utils.ParseDateBound(req.Date, false)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		date = d
	}

	txn, err := h.commands.CreateTransaction(c.Request.Context(), cqrs.CreateTransactionCommand{
		UserID:        userID,
		AccountType:   models.AccountType(req.AccountType),
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		Date:          date,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to create transaction")
		return
	}

	c.JSON(http.StatusCreated, txn)
}

func (h *TransactionHandler) ListForUser(c *gin.Context) {
	userID, ok := h.authorizeUser(c)
	if !ok {
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	q := cqrs.ListTransactionsQuery{
		UserID:      userID,
		AccountType: models.AccountType(req.AccountType),
		Category:    req.Category,
	}
	if req.From != "" {
		from, err := utils.ParseDateBound(req.From, false)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		q.From = &from
	}
	if req.To != "" {
		to, err := utils.ParseDateBound(req.To, true)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		q.To = &to
	}

	txns, err := h.queries.FindAllForUser(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to list transactions")
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}

	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: txns})
}

func (h *TransactionHandler) SpendingByCategory(c *gin.Context) {
	userID, ok := h.authorizeUser(c)
	if !ok {
		return
	}

	var req SpendingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	from, err := utils.ParseDateBound(req.From, false)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	to, err := utils.ParseDateBound(req.To, true)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	q := cqrs.SpendingByCategoryQuery{
		UserID:      userID,
		From:        from,
		To:          to,
		AccountType: models.AccountType(req.AccountType),
		Categories:  splitCategories(req.Categories),
	}
	if req.Min != "" {
		minAmount, err := decimal.NewFromString(req.Min)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid min amount")
			return
		}
		q.MinAmount = minAmount
	}

	summary, err := h.queries.SpendingByCategory(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to summarise spending")
		return
	}
	if summary == nil {
		summary = []models.CategorySpend{}
	}

	c.JSON(http.StatusOK, SpendingResponse{SpendingByCategory: summary})
}

// authorizeUser checks that the :userId path parameter names the caller.
func (h *TransactionHandler) authorizeUser(c *gin.Context) (string, bool) {
	userID, _ := middleware.GetUserID(c)
	if c.Param("userId") != userID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only view your own transactions")
		return "", false
	}
	return userID, true
}

func splitCategories(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
