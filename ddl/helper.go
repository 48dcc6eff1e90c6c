package ddl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Limit 生成 LIMIT 子句，offset 为负数时返回空串
func Limit(offset int, count int) string {
	if offset < 0 {
		return ""
	}
	stmt := "LIMIT " + strconv.Itoa(offset)
	if count > 0 {
		stmt += ", " + strconv.Itoa(count)
	}
	return stmt
}

// Int 将任意值转换为整数字面量，无法转换时为 0
func Int(v any) string {
	switch n := v.(type) {
	case nil:
		return "0"
	case int:
		return strconv.Itoa(n)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", n)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", n)
	case float32:
		return Int(float64(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "0"
		}
		return strconv.FormatInt(int64(n), 10)
	case bool:
		if n {
			return "1"
		}
		return "0"
	case string:
		return strconv.FormatInt(leadingInt(strings.TrimSpace(n)), 10)
	default:
		return Int(fmt.Sprint(v))
	}
}

// Float 将任意值转换为浮点数字面量，小数点总是 "."
func Float(v any) string {
	var f float64
	switch n := v.(type) {
	case nil:
		return "0"
	case float32:
		f = float64(n)
	case float64:
		f = n
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ = strconv.ParseFloat(fmt.Sprintf("%d", n), 64)
	case bool:
		if n {
			return "1"
		}
		return "0"
	case string:
		f = leadingFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."))
	default:
		return Float(fmt.Sprint(v))
	}
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// leadingInt 解析字符串开头的整数部分，"12abc" 为 12
func leadingInt(s string) int64 {
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func leadingFloat(s string) float64 {
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
	}
	return 0
}
