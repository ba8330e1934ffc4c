package openai

import (
	"errors"
	"fmt"
)

// RemoteError 远程助手服务错误
// 传输失败或非 2xx 响应，Body 保存响应体或传输错误文本
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("openai: request failed: %s", e.Body)
	}
	return fmt.Sprintf("openai: unexpected status %d: %s", e.Status, e.Body)
}

// DecodeError 响应体不符合预期结构
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("openai: failed to decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRemote 判断是否远程服务错误（含解码错误）
func IsRemote(err error) bool {
	var re *RemoteError
	var de *DecodeError
	return errors.As(err, &re) || errors.As(err, &de)
}
