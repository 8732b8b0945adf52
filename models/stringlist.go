package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList 统一处理"数组或序列化字符串"两种形式的列表字段
// (size、images、existingImages)，入口处归一化，后续代码只见 []string。
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("string list: expected array or string, got %s", data)
	}
	parsed, err := parseListString(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NormalizeList 归一化multipart表单值：重复字段、JSON数组串或单个值。
func NormalizeList(values []string) (StringList, error) {
	if len(values) == 1 {
		return parseListString(values[0])
	}
	out := make(StringList, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func parseListString(raw string) (StringList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StringList{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, fmt.Errorf("string list: invalid JSON array: %w", err)
		}
		return arr, nil
	}
	return StringList{raw}, nil
}

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*s = nil
			return nil
		}
		return json.Unmarshal(v, s)
	case string:
		if v == "" {
			*s = nil
			return nil
		}
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("string list: cannot scan %T", src)
	}
}
