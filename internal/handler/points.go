package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"BitePoints/internal/model/dto"
	"BitePoints/internal/service"
	"BitePoints/pkg/response"
)

// GetPointsBalance 积分余额
// GET /v1/points/balance
func GetPointsBalance(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	balance, err := service.Points().Balance(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.PointsBalanceResponse{Balance: balance})
}

// RedeemPoints 积分兑换
// POST /v1/points/redeem
func RedeemPoints(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	var req dto.RedeemPointsRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	balance, err := service.Points().Redeem(ctx, userID, req.Amount, req.Reason)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.RedeemPointsResponse{
		Amount:  req.Amount,
		Balance: balance,
	})
}

// ListPointsTransactions 积分流水
// GET /v1/points/transactions
func ListPointsTransactions(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	var query dto.PointsTransactionsQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	transactions, err := service.Points().Transactions(ctx, userID, query.Limit, query.Offset)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	data := make([]dto.PointsTransactionData, 0, len(transactions))
	for _, transaction := range transactions {
		data = append(data, dto.PointsTransactionData{
			ID:              transaction.ID,
			TransactionType: string(transaction.TransactionType),
			Reason:          transaction.Reason,
			SurveyID:        transaction.SurveyID,
			Amount:          transaction.Amount,
			BalanceAfter:    transaction.BalanceAfter,
			CreatedAt:       transaction.CreatedAt,
		})
	}

	response.SuccessWithMeta(ctx, c, data, map[string]interface{}{
		"limit":  query.Limit,
		"offset": query.Offset,
		"count":  len(data),
	})
}
