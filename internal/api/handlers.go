// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/curve"
	"github.com/streetsync/launchpad-engine/internal/export"
	"github.com/streetsync/launchpad-engine/internal/market"
)

func (s *Server) handleListCurves(c *gin.Context) {
	curves := s.curves.List()
	out := make([]CurveResponse, 0, len(curves))
	for _, cs := range curves {
		out = append(out, curveResponse(cs))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetCurve(c *gin.Context) {
	mint, err := solana.PublicKeyFromBase58(c.Param("mint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address"})
		return
	}
	state, err := s.curves.Get(mint)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, curveResponse(state))
}

func (s *Server) handleQuoteBuy(c *gin.Context) {
	mint, err := solana.PublicKeyFromBase58(c.Param("mint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address"})
		return
	}
	amount, err := strconv.ParseUint(c.Query("amount"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	cost, err := s.curves.QuoteBuy(mint, amount)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mint":          mint.String(),
		"amount":        amount,
		"cost_lamports": cost,
	})
}

func (s *Server) handleInitializeCurve(c *gin.Context) {
	var req InitializeCurveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	creator, err := solana.PublicKeyFromBase58(req.Creator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator address"})
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address"})
		return
	}

	res, err := s.curves.Initialize(c.Request.Context(), creator, mint,
		req.VirtualSolReserves, req.VirtualTokenReserves, req.RealTokenReserves)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"curve":     res.Curve.String(),
		"signature": res.Signature.String(),
	})
}

func (s *Server) handleCurveBuy(c *gin.Context) {
	mint, err := solana.PublicKeyFromBase58(c.Param("mint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address"})
		return
	}
	var req CurveBuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buyer, err := solana.PublicKeyFromBase58(req.Buyer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buyer address"})
		return
	}

	res, err := s.curves.Buy(c.Request.Context(), buyer, mint, req.Amount)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signature":     res.Signature.String(),
		"cost_lamports": res.Cost,
		"curve":         curveResponse(res.State),
	})
}

func (s *Server) handleListings(c *gin.Context) {
	var seller *solana.PublicKey
	if raw := c.Query("seller"); raw != "" {
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller address"})
			return
		}
		seller = &pk
	}
	listings := s.market.Listings(seller)
	out := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, listingResponse(l))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateListing(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	seller, err := solana.PublicKeyFromBase58(req.Seller)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller address"})
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address"})
		return
	}

	res, err := s.market.List(c.Request.Context(), seller, mint, req.Price)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"listing":   res.Listing.String(),
		"signature": res.Signature.String(),
	})
}

func (s *Server) handleCancelListing(c *gin.Context) {
	mint, seller, ok := s.listingKey(c)
	if !ok {
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caller, err := solana.PublicKeyFromBase58(req.Caller)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid caller address"})
		return
	}

	sig, err := s.market.Cancel(c.Request.Context(), caller, mint, seller)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signature": sig.String()})
}

func (s *Server) handleListingBuy(c *gin.Context) {
	mint, seller, ok := s.listingKey(c)
	if !ok {
		return
	}
	var req ListingBuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buyer, err := solana.PublicKeyFromBase58(req.Buyer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buyer address"})
		return
	}

	res, err := s.market.Buy(c.Request.Context(), buyer, mint, seller)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signature":      res.Signature.String(),
		"price_lamports": res.Price,
		"fee_lamports":   res.Fee,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history storage not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	ts, err := s.store.ListTransitions(c.Request.Context(), c.Query("mint"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ts)
}

func (s *Server) handleHistoryExport(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history storage not configured"})
		return
	}

	opts := export.Options{
		Format: export.Format(c.DefaultQuery("format", "csv")),
		Mint:   c.Query("mint"),
		Kind:   c.Query("kind"),
	}
	if opts.Format != export.FormatCSV && opts.Format != export.FormatJSON {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or json"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10000"))
	ts, err := s.store.ListTransitions(c.Request.Context(), opts.Mint, limit, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	contentType := "text/csv"
	if opts.Format == export.FormatJSON {
		contentType = "application/json"
	}
	c.Header("Content-Disposition", "attachment; filename="+s.exporter.Filename(opts))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if err := s.exporter.Export(c.Writer, ts, opts); err != nil {
		s.logger.Warn("History export failed", zap.Error(err))
	}
}

func (s *Server) listingKey(c *gin.Context) (mint, seller solana.PublicKey, ok bool) {
	mint, err := solana.PublicKeyFromBase58(c.Param("mint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address"})
		return mint, seller, false
	}
	seller, err = solana.PublicKeyFromBase58(c.Param("seller"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller address"})
		return mint, seller, false
	}
	return mint, seller, true
}

// renderError maps engine errors to HTTP statuses. The retryable flag tells
// clients whether resubmitting the same request can succeed (concurrency
// conflict) or the rejection is a business rule.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	retryable := false

	switch {
	case errors.Is(err, curve.ErrInvalidAmount),
		errors.Is(err, curve.ErrInvalidReserves),
		errors.Is(err, market.ErrInvalidPrice):
		status = http.StatusBadRequest
	case errors.Is(err, curve.ErrDuplicateCurve),
		errors.Is(err, market.ErrDuplicateListing):
		status = http.StatusConflict
	case errors.Is(err, curve.ErrCurveNotFound),
		errors.Is(err, market.ErrListingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrNotSeller):
		status = http.StatusForbidden
	case errors.Is(err, curve.ErrInsufficientBalance),
		errors.Is(err, curve.ErrInsufficientReserves),
		errors.Is(err, curve.ErrInsufficientLiquidity),
		errors.Is(err, curve.ErrInsufficientFunds),
		errors.Is(err, curve.ErrMathOverflow),
		errors.Is(err, market.ErrInsufficientUnitBalance),
		errors.Is(err, market.ErrInsufficientFeeBalance),
		errors.Is(err, market.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case curve.IsRetryable(err):
		status = http.StatusConflict
		retryable = true
	default:
		s.logger.Error("Unhandled engine error", zap.Error(err))
	}

	c.JSON(status, gin.H{"error": err.Error(), "retryable": retryable})
}
