// Package transactiondelivery manages delivery layer of the transaction ledger.
package transactiondelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/internal/middleware"
	"github.com/go-arno/peerbank/pkg/errorspkg"
	"github.com/go-arno/peerbank/pkg/jsonresponse"
	"github.com/go-arno/peerbank/pkg/tokenpkg"
)

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Service interface {
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
}

// AccountReader resolves accounts for ownership checks.
type AccountReader interface {
	Get(ctx context.Context, id int32) (domain.Account, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service  Service
	accounts AccountReader
}

// NewHandler returns transaction handler.
func NewHandler(ts Service, ar AccountReader) *Handler {
	return &Handler{
		service:  ts,
		accounts: ar,
	}
}

type listRequest struct {
	AccountID int32 `form:"account_id" binding:"required,min=1"`
	PageID    int32 `form:"page_id" binding:"required,min=1"`
	PageSize  int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type dataTransactions struct {
	Transactions []domain.Transaction `json:"transactions"`
}
type response struct {
	Data dataTransactions `json:"data,omitempty"`
}

// List handles http request to list the ledger entries touching one of the
// authenticated user's accounts, newest first.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.ValidationError(err))

		return
	}

	acc, err := h.accounts.Get(ctx, req.AccountID)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)
	if acc.Owner != authPayload.Username {
		l.Warn().Str("owner", acc.Owner).Msg("transaction list access denied")
		gctx.JSON(http.StatusUnauthorized, jsonresponse.Error(domain.ErrAccountOwnerMismatch))

		return
	}

	arg := domain.ListTransactionsParams{
		AccountID: req.AccountID,
		Limit:     req.PageSize,
		Offset:    (req.PageID - 1) * req.PageSize,
	}

	transactions, err := h.service.List(ctx, arg)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	res := response{
		Data: dataTransactions{transactions},
	}

	gctx.JSON(http.StatusOK, res)
}
