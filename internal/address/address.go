package address

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Generate 根据种子和盐派生校验和格式的虚拟合约地址
// keccak256(seed||salt)取低160位，输出EIP-55混合大小写格式
// 同一(seed, salt)对结果确定，盐变化则地址变化
func Generate(seed, salt string) string {
	normalized := strings.ToLower(strings.TrimSpace(seed))
	hash := crypto.Keccak256([]byte(normalized + salt))
	return common.BytesToAddress(hash[12:]).Hex()
}

// Valid 校验地址格式：0x前缀+40位十六进制
// 混合大小写时必须通过EIP-55校验和，全小写或全大写视为未校验格式直接接受
func Valid(s string) bool {
	if len(s) != 42 || !common.IsHexAddress(s) {
		return false
	}
	hex := s[2:]
	if hex == strings.ToLower(hex) || hex == strings.ToUpper(hex) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}

// Normalize 转换为EIP-55校验和格式，用于存储和查询键
func Normalize(s string) string {
	return common.HexToAddress(s).Hex()
}
