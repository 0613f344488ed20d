package transport

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PDFHandler renders order invoices as PDF attachments
type PDFHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewPDFHandler creates a new PDFHandler
func NewPDFHandler(orderService service.OrderService, logger *zap.Logger) *PDFHandler {
	return &PDFHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the invoice route
func (h *PDFHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/pdf/invoice/{orderID}", h.Invoice)
	})
}

// Invoice streams a PDF invoice for the order. Owners can fetch their own
// invoices; admins can fetch any.
func (h *PDFHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}
	isAdmin, _ := middleware.GetIsAdmin(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID, userID, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrForbidden):
			middleware.RespondWithError(w, http.StatusForbidden, "not allowed to view this order")
		default:
			h.logger.Error("Failed to load order for invoice", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load order")
		}
		return
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+order.ID.String(), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Invoice")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Order ID: "+order.ID.String())
	pdf.Ln(6)
	pdf.Cell(0, 6, "Placed: "+order.CreatedAt.Format("02 Jan 2006 15:04"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status: "+string(order.Status))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Ship to")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	addr := order.ShippingAddress
	pdf.Cell(0, 6, addr.Name)
	pdf.Ln(5)
	pdf.Cell(0, 6, addr.Address)
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("%s - %s", addr.City, addr.Pincode))
	pdf.Ln(5)
	pdf.Cell(0, 6, addr.Phone)
	pdf.Ln(10)

	// Line items table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 7, "Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.OrderItems {
		pdf.CellFormat(90, 7, item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", item.Qty), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", item.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", item.Price*float64(item.Qty)), "1", 0, "R", false, 0, "")
		pdf.Ln(7)
	}

	pdf.Ln(4)
	writeTotal := func(label string, value float64) {
		pdf.CellFormat(150, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", value), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	writeTotal("Items", order.ItemsPrice)
	writeTotal("Tax", order.TaxPrice)
	writeTotal("Shipping", order.ShippingPrice)
	pdf.SetFont("Helvetica", "B", 11)
	writeTotal("Total", order.TotalPrice)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", order.ID))

	if err := pdf.Output(w); err != nil {
		h.logger.Error("Failed to render invoice PDF", zap.Error(err))
	}
}
