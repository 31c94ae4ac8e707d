// Package proto 定義 VaultService / FundGatewayService 的請求與回應訊息。
// 訊息對照 proto/vault.proto 手寫維護，線上以 JSON 傳輸 (見 codec.go)；
// tag 中的欄位編號對應 .proto 定義
package proto

type DepositRequest struct {
	RefId     string `protobuf:"bytes,1,opt,name=ref_id" json:"ref_id,omitempty"`
	AccountId int64  `protobuf:"varint,2,opt,name=account_id" json:"account_id,omitempty"`
	Amount    int64  `protobuf:"varint,3,opt,name=amount" json:"amount,omitempty"`
}

type DepositResponse struct {
	Success    bool   `protobuf:"varint,1,opt,name=success" json:"success,omitempty"`
	Message    string `protobuf:"bytes,2,opt,name=message" json:"message,omitempty"`
	Reason     string `protobuf:"bytes,3,opt,name=reason" json:"reason,omitempty"`
	NewBalance int64  `protobuf:"varint,4,opt,name=new_balance" json:"new_balance,omitempty"`
}

type WithdrawRequest struct {
	RefId     string `protobuf:"bytes,1,opt,name=ref_id" json:"ref_id,omitempty"`
	AccountId int64  `protobuf:"varint,2,opt,name=account_id" json:"account_id,omitempty"`
	Amount    int64  `protobuf:"varint,3,opt,name=amount" json:"amount,omitempty"`
}

type WithdrawResponse struct {
	Success    bool   `protobuf:"varint,1,opt,name=success" json:"success,omitempty"`
	Message    string `protobuf:"bytes,2,opt,name=message" json:"message,omitempty"`
	Reason     string `protobuf:"bytes,3,opt,name=reason" json:"reason,omitempty"`
	NewBalance int64  `protobuf:"varint,4,opt,name=new_balance" json:"new_balance,omitempty"`
}

type GetBalanceRequest struct {
	AccountId int64 `protobuf:"varint,1,opt,name=account_id" json:"account_id,omitempty"`
}

type GetBalanceResponse struct {
	Balance int64 `protobuf:"varint,1,opt,name=balance" json:"balance,omitempty"`
}

type GetStatsRequest struct {
}

type GetStatsResponse struct {
	TotalHeld        int64  `protobuf:"varint,1,opt,name=total_held" json:"total_held,omitempty"`
	TotalDeposits    uint64 `protobuf:"varint,2,opt,name=total_deposits" json:"total_deposits,omitempty"`
	TotalWithdrawals uint64 `protobuf:"varint,3,opt,name=total_withdrawals" json:"total_withdrawals,omitempty"`
	BankCap          int64  `protobuf:"varint,4,opt,name=bank_cap" json:"bank_cap,omitempty"`
	PerWithdrawalCap int64  `protobuf:"varint,5,opt,name=per_withdrawal_cap" json:"per_withdrawal_cap,omitempty"`
}

type ReleaseRequest struct {
	RefId     string `protobuf:"bytes,1,opt,name=ref_id" json:"ref_id,omitempty"`
	AccountId int64  `protobuf:"varint,2,opt,name=account_id" json:"account_id,omitempty"`
	Amount    int64  `protobuf:"varint,3,opt,name=amount" json:"amount,omitempty"`
}

type ReleaseResponse struct {
	Success bool   `protobuf:"varint,1,opt,name=success" json:"success,omitempty"`
	Message string `protobuf:"bytes,2,opt,name=message" json:"message,omitempty"`
}
