package keycodec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Encode 将任意缓存键编码为稳定的字符串形式，供 Redis/SQL 等
// 外部后端作存储键使用。同一键的编码结果在进程间保持一致。
//
// 字符串与整型键保留可读形式并加类型前缀隔离命名空间；
// 其余类型走 JSON 序列化后取 SHA-256 摘要。
func Encode(key any) string {
	switch k := key.(type) {
	case string:
		return "s:" + k
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("i:%d", k)
	case bool:
		return fmt.Sprintf("b:%t", k)
	default:
		return hashKey(key)
	}
}

// hashKey 对复合键做确定性摘要
func hashKey(key any) string {
	data, err := json.Marshal(key)
	if err != nil {
		// fallback: 使用 fmt.Sprintf 生成确定性字符串避免 key 碰撞
		data = []byte(fmt.Sprintf("%+v", key))
	}
	hash := sha256.Sum256(data)
	return "h:" + hex.EncodeToString(hash[:16]) // 使用前 16 字节
}
