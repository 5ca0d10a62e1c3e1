package identity

import (
	"strings"
	"unicode"

	"github.com/lvdashuaibi/pulsevote/internal/model"
)

// NormalizeContact 归一化联系方式：去掉所有非数字字符
// 结果为空视为无效联系方式
func NormalizeContact(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if key == "" {
		return "", model.ErrInvalidContact
	}
	return key, nil
}

// NormalizeName 归一化姓名：去首尾空白、内部空白折叠为单个空格、转小写
// 少于两个词的姓名不视为完整姓名
func NormalizeName(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", model.ErrIncompleteName
	}
	return strings.ToLower(strings.Join(fields, " ")), nil
}

// DisplayToken 取原始姓名的第一个词作为活动流展示名，首字母大写其余小写
func DisplayToken(rawName string) string {
	fields := strings.Fields(rawName)
	if len(fields) == 0 {
		return ""
	}
	runes := []rune(strings.ToLower(fields[0]))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
