package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nanobanana/nanobanana-api/internal/service"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	reportSvc *service.ReportService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(reportSvc *service.ReportService) *AdminHandler {
	return &AdminHandler{reportSvc: reportSvc}
}

// PaymentsReportOutput represents the admin billing report.
type PaymentsReportOutput struct {
	Body service.PaymentsReport
}

// GetPaymentsReport returns all subscriptions, accounts and ledger
// entries plus aggregate counts. Admin claims are enforced by
// middleware; the claims check here is a second gate for direct use.
func (h *AdminHandler) GetPaymentsReport(ctx context.Context, input *struct{}) (*PaymentsReportOutput, error) {
	claims := getUserClaims(ctx)
	if claims == nil || !claims.Admin {
		return nil, huma.Error403Forbidden("admin access required")
	}

	report, err := h.reportSvc.Payments(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to build payments report")
	}

	out := &PaymentsReportOutput{Body: *report}
	return out, nil
}
