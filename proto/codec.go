package proto

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName 是本套件訊息在線上使用的 content-subtype
// (Content-Type: application/grpc+json)
//
// 訊息結構是對照 proto/vault.proto 手寫維護的，沒有 protobuf
// descriptor，無法走 gRPC 預設的 proto codec；改向 gRPC 的
// encoding registry 註冊 JSON codec，伺服器端依 content-subtype
// 自動選用，客戶端 stub 以 grpc.CallContentSubtype 指定
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}
