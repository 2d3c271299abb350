package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nanobanana/nanobanana-api/internal/models"
	"github.com/nanobanana/nanobanana-api/internal/repository"
)

// PaymentsSummary aggregates billing state across all users.
type PaymentsSummary struct {
	TotalSubscriptions  int   `json:"totalSubscriptions"`
	ActiveSubscriptions int   `json:"activeSubscriptions"`
	TotalUsers          int   `json:"totalUsers"`
	TotalTransactions   int   `json:"totalTransactions"`
	CreditsGranted      int64 `json:"creditsGranted"`
	CreditsUsed         int64 `json:"creditsUsed"`
}

// PaymentsReport is the admin view of billing state.
type PaymentsReport struct {
	Subscriptions []*models.Subscription      `json:"subscriptions"`
	Accounts      []*models.CreditAccount     `json:"accounts"`
	Transactions  []*models.CreditTransaction `json:"transactions"`
	Summary       PaymentsSummary             `json:"summary"`
}

// ReportService produces operator reports over billing data.
type ReportService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewReportService creates a new report service.
func NewReportService(repos *repository.Repositories, logger *slog.Logger) *ReportService {
	return &ReportService{repos: repos, logger: logger}
}

// Payments returns the full billing report with per-row detail and
// aggregate summary.
func (s *ReportService) Payments(ctx context.Context) (*PaymentsReport, error) {
	subscriptions, err := s.repos.Subscription.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	accounts, err := s.repos.Credits.ListAllAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit accounts: %w", err)
	}
	transactions, err := s.repos.Credits.ListAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	summary := PaymentsSummary{
		TotalSubscriptions: len(subscriptions),
		TotalUsers:         len(accounts),
		TotalTransactions:  len(transactions),
	}
	for _, sub := range subscriptions {
		if sub.Status == models.SubStatusActive {
			summary.ActiveSubscriptions++
		}
	}
	for _, acct := range accounts {
		summary.CreditsGranted += acct.TotalCredits
		summary.CreditsUsed += acct.UsedCredits
	}

	return &PaymentsReport{
		Subscriptions: subscriptions,
		Accounts:      accounts,
		Transactions:  transactions,
		Summary:       summary,
	}, nil
}
