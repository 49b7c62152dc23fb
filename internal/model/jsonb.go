package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonb 列的通用编解码，损坏的持久化数据在 Scan 时回退为零值而不是报错，
// 加载路径上的状态重置策略见各调用方

func jsonbValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	return b, nil
}

func jsonbScan(src, dst interface{}) error {
	if src == nil {
		return nil
	}

	var data []byte
	switch s := src.(type) {
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		// 损坏的持久化数据重置为零值，而不是让整行加载失败
		if v := reflect.ValueOf(dst); v.Kind() == reflect.Ptr && !v.IsNil() {
			v.Elem().Set(reflect.Zero(v.Elem().Type()))
		}
	}
	return nil
}

// StringList jsonb 字符串数组
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return jsonbValue([]string{})
	}
	return jsonbValue([]string(l))
}

func (l *StringList) Scan(src interface{}) error {
	return jsonbScan(src, l)
}

// Contains 判断列表中是否存在指定元素
func (l StringList) Contains(s string) bool {
	for _, item := range l {
		if item == s {
			return true
		}
	}
	return false
}

// AnswerMap 问题 id -> 答案值 的 jsonb 映射
type AnswerMap map[string]interface{}

func (m AnswerMap) Value() (driver.Value, error) {
	if m == nil {
		return jsonbValue(map[string]interface{}{})
	}
	return jsonbValue(map[string]interface{}(m))
}

func (m *AnswerMap) Scan(src interface{}) error {
	return jsonbScan(src, m)
}
