package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	pb "github.com/JoeShih716/go-vault-ledger/proto"
)

// 機器可讀的失敗原因，放在回應的 reason 欄位
const (
	ReasonZeroAmount            = "zero_amount"
	ReasonCapExceeded           = "cap_exceeded"
	ReasonWithdrawalCapExceeded = "withdrawal_cap_exceeded"
	ReasonInsufficientBalance   = "insufficient_balance"
	ReasonReleaseFailed         = "release_failed"
	ReasonInvalidRequest        = "invalid_request"
	ReasonInternal              = "internal"
)

type GrpcServer struct {
	pb.UnimplementedVaultServiceServer
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) Deposit(ctx context.Context, req *pb.DepositRequest) (*pb.DepositResponse, error) {
	// 1. UUID 解析
	u, err := uuid.Parse(req.RefId)
	if err != nil {
		return &pb.DepositResponse{
			Success: false,
			Message: "invalid ref_id: " + err.Error(),
			Reason:  ReasonInvalidRequest,
		}, nil
	}

	// 2. 組裝 Domain Transaction
	tran := &domain.Transaction{
		TransactionID: u,
		Account:       req.AccountId,
		Amount:        req.Amount,
		Type:          domain.TransactionTypeDeposit,
	}

	// 3. 執行存款
	newBalance, err := s.core.Deposit(ctx, tran)
	if err != nil {
		// 業務邏輯錯誤，回傳 Success=false (Soft Failure)
		return &pb.DepositResponse{
			Success: false,
			Message: err.Error(),
			Reason:  reasonOf(err),
		}, nil
	}

	return &pb.DepositResponse{
		Success:    true,
		NewBalance: newBalance,
	}, nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *pb.WithdrawRequest) (*pb.WithdrawResponse, error) {
	u, err := uuid.Parse(req.RefId)
	if err != nil {
		return &pb.WithdrawResponse{
			Success: false,
			Message: "invalid ref_id: " + err.Error(),
			Reason:  ReasonInvalidRequest,
		}, nil
	}

	tran := &domain.Transaction{
		TransactionID: u,
		Account:       req.AccountId,
		Amount:        req.Amount,
		Type:          domain.TransactionTypeWithdraw,
	}

	newBalance, err := s.core.Withdraw(ctx, tran)
	if err != nil {
		return &pb.WithdrawResponse{
			Success: false,
			Message: err.Error(),
			Reason:  reasonOf(err),
		}, nil
	}

	return &pb.WithdrawResponse{
		Success:    true,
		NewBalance: newBalance,
	}, nil
}

// GetBalance 查詢餘額，未知帳戶回傳 0 (不是 NotFound)
func (s *GrpcServer) GetBalance(ctx context.Context, req *pb.GetBalanceRequest) (*pb.GetBalanceResponse, error) {
	balance, err := s.core.BalanceOf(ctx, req.AccountId)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &pb.GetBalanceResponse{
		Balance: balance,
	}, nil
}

func (s *GrpcServer) GetStats(ctx context.Context, req *pb.GetStatsRequest) (*pb.GetStatsResponse, error) {
	stats, err := s.core.Stats(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &pb.GetStatsResponse{
		TotalHeld:        stats.TotalHeld,
		TotalDeposits:    stats.TotalDeposits,
		TotalWithdrawals: stats.TotalWithdrawals,
		BankCap:          stats.BankCap,
		PerWithdrawalCap: stats.PerWithdrawalCap,
	}, nil
}

// reasonOf 把 domain 錯誤轉成 reason 欄位
func reasonOf(err error) string {
	var capErr *domain.CapExceededError
	var wCapErr *domain.WithdrawalCapExceededError
	var insufErr *domain.InsufficientBalanceError
	var relErr *domain.ReleaseFailedError

	switch {
	case errors.Is(err, domain.ErrZeroAmount):
		return ReasonZeroAmount
	case errors.As(err, &capErr):
		return ReasonCapExceeded
	case errors.As(err, &wCapErr):
		return ReasonWithdrawalCapExceeded
	case errors.As(err, &insufErr):
		return ReasonInsufficientBalance
	case errors.As(err, &relErr):
		return ReasonReleaseFailed
	default:
		return ReasonInternal
	}
}
