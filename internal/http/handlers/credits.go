package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nanobanana/nanobanana-api/internal/service"
)

// CreditsHandler handles the credits ledger endpoints.
type CreditsHandler struct {
	ledgerSvc *service.LedgerService
}

// NewCreditsHandler creates a new credits handler.
func NewCreditsHandler(ledgerSvc *service.LedgerService) *CreditsHandler {
	return &CreditsHandler{ledgerSvc: ledgerSvc}
}

// GetCreditsOutput represents the balance response.
type GetCreditsOutput struct {
	Body struct {
		TotalCredits     int64 `json:"total_credits"`
		UsedCredits      int64 `json:"used_credits"`
		AvailableCredits int64 `json:"available_credits"`
	}
}

// GetCredits returns the caller's credit balances, creating the account
// on first access.
func (h *CreditsHandler) GetCredits(ctx context.Context, input *struct{}) (*GetCreditsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	account, err := h.ledgerSvc.GetBalance(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get credits")
	}

	out := &GetCreditsOutput{}
	out.Body.TotalCredits = account.TotalCredits
	out.Body.UsedCredits = account.UsedCredits
	out.Body.AvailableCredits = account.Available()
	return out, nil
}

// MutateCreditsInput represents a ledger mutation request.
type MutateCreditsInput struct {
	Body struct {
		Action      string `json:"action" enum:"use,add" doc:"use consumes credits, add grants them"`
		Amount      int64  `json:"amount" minimum:"1" doc:"Credit amount, always positive"`
		Description string `json:"description,omitempty" doc:"Optional transaction note"`
	}
}

// MutateCreditsOutput represents a ledger mutation response.
type MutateCreditsOutput struct {
	Body struct {
		Success          bool   `json:"success"`
		Message          string `json:"message"`
		AvailableCredits int64  `json:"available_credits"`
	}
}

// MutateCredits applies a use or add action to the caller's account.
func (h *CreditsHandler) MutateCredits(ctx context.Context, input *MutateCreditsInput) (*MutateCreditsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	var err error
	var available int64
	switch input.Body.Action {
	case "use":
		description := input.Body.Description
		if description == "" {
			description = "credit usage"
		}
		account, consumeErr := h.ledgerSvc.Consume(ctx, userID, input.Body.Amount, description)
		if consumeErr != nil {
			err = consumeErr
		} else {
			available = account.Available()
		}
	case "add":
		reason := input.Body.Description
		if reason == "" {
			reason = "manual credit grant"
		}
		account, grantErr := h.ledgerSvc.Grant(ctx, userID, input.Body.Amount, reason)
		if grantErr != nil {
			err = grantErr
		} else {
			available = account.Available()
		}
	default:
		return nil, huma.Error400BadRequest("action must be use or add")
	}

	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientCredits):
			// Distinguishable code so clients can prompt a purchase.
			return nil, huma.Error400BadRequest("insufficient_credits")
		case errors.Is(err, service.ErrInvalidAmount):
			return nil, huma.Error400BadRequest("amount must be positive")
		}
		return nil, huma.Error500InternalServerError("failed to update credits")
	}

	out := &MutateCreditsOutput{}
	out.Body.Success = true
	out.Body.Message = "credits updated"
	out.Body.AvailableCredits = available
	return out, nil
}

// ListTransactionsInput represents a transaction history request.
type ListTransactionsInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// TransactionInfo is one ledger entry as returned to clients.
type TransactionInfo struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListTransactionsOutput represents the transaction history response.
type ListTransactionsOutput struct {
	Body struct {
		Transactions []TransactionInfo `json:"transactions"`
	}
}

// ListTransactions returns the caller's ledger entries, newest first.
func (h *CreditsHandler) ListTransactions(ctx context.Context, input *ListTransactionsInput) (*ListTransactionsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	transactions, err := h.ledgerSvc.History(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list transactions")
	}

	out := &ListTransactionsOutput{}
	out.Body.Transactions = make([]TransactionInfo, 0, len(transactions))
	for _, tx := range transactions {
		out.Body.Transactions = append(out.Body.Transactions, TransactionInfo{
			ID:           tx.ID,
			Type:         string(tx.Type),
			Amount:       tx.Amount,
			BalanceAfter: tx.BalanceAfter,
			Description:  tx.Description,
			CreatedAt:    tx.CreatedAt,
		})
	}
	return out, nil
}
