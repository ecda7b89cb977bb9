package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// Get
// GET /api/wallet
func (h *WalletHandler) Get(c *gin.Context) {
	wallet, err := h.walletService.GetWallet(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, wallet)
}

// UpdatePaymentMethod
// PUT /api/wallet/payment-method
func (h *WalletHandler) UpdatePaymentMethod(c *gin.Context) {
	var req services.UpdatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.walletService.UpdatePaymentMethod(c.Request.Context(), userID, &req); err != nil {
		fail(c, err)
		return
	}
	wallet, err := h.walletService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, wallet)
}

// ListEntries
// GET /api/wallet/entries
func (h *WalletHandler) ListEntries(c *gin.Context) {
	var req services.WalletEntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.walletService.ListEntries(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// RequestPayout withdraws the full available balance.
// POST /api/wallet/payout
func (h *WalletHandler) RequestPayout(c *gin.Context) {
	payout, err := h.walletService.RequestPayout(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, payout)
}

// ListMyPayouts
// GET /api/wallet/payouts
func (h *WalletHandler) ListMyPayouts(c *gin.Context) {
	var req services.PayoutListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.UserID = middleware.GetUserID(c)

	page, err := h.walletService.ListPayouts(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// ListPayouts
// GET /api/admin/payouts
func (h *WalletHandler) ListPayouts(c *gin.Context) {
	var req services.PayoutListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.walletService.ListPayouts(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

type reviewPayoutRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// ReviewPayout marks a payout Completed or Rejected.
// POST /api/admin/payouts/:id/review
func (h *WalletHandler) ReviewPayout(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reviewPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	payout, err := h.walletService.ReviewPayout(c.Request.Context(), id, middleware.GetUserID(c), req.Status, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, payout)
}
