package apperror

// 业务状态码
const (
	CodeSuccess = 0

	// 通用错误 400xx
	CodeBadRequest       = 40000
	CodeValidation       = 40001
	CodeInvalidSignature = 40002

	// 鉴权错误 401xx / 403xx
	CodeUnauthorized = 40100
	CodeTokenInvalid = 40101
	CodeAuthFailed   = 40102
	CodeForbidden    = 40300

	// 订单模块错误 404xx / 409xx
	CodeNotFound          = 40400
	CodeOrderNotFound     = 40401
	CodeConflict          = 40900
	CodeInvalidTransition = 40901
	CodePaymentLinkExists = 40902

	CodeTooManyRequests = 42900

	// 系统错误 500xx
	CodeInternal = 50000
	CodeUpstream = 50200
)
