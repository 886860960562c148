package errors

// 业务错误码：1xxxx 通用，3xxxx 考勤生成，5xxxx 服务端
const (
	CodeOK              = 0
	CodeBadRequest      = 10001
	CodeUnauthorized    = 10002
	CodeRateLimited     = 10004
	CodeBodyTooLarge    = 10005
	CodeInvalidInput    = 30001
	CodeRosterInvalid   = 30101
	CodeJobNotFound     = 30201
	CodeRunNotFound     = 30202
	CodeRenderFailed    = 30301
	CodeHistoryDisabled = 30401
	CodeTimeout         = 30501
	CodeInternal        = 50000
)

var messages = map[int]string{
	CodeOK:              "success",
	CodeBadRequest:      "请求参数错误",
	CodeUnauthorized:    "API Key 无效或缺失",
	CodeRateLimited:     "请求过于频繁，请稍后再试",
	CodeBodyTooLarge:    "请求体过大",
	CodeInvalidInput:    "输入校验失败",
	CodeRosterInvalid:   "名单文件无法解析",
	CodeJobNotFound:     "生成结果不存在或已过期",
	CodeRunNotFound:     "生成记录不存在",
	CodeRenderFailed:    "所有输出格式均渲染失败",
	CodeHistoryDisabled: "未启用生成历史",
	CodeTimeout:         "生成超时",
	CodeInternal:        "服务器内部错误",
}

// Message 错误码对应的默认提示
func Message(code int) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return messages[CodeInternal]
}
