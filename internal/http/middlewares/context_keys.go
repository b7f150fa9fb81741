package middlewares

const (
	CtxRequestID = "request_id"
	ctxEmailKey  = "session.email"
)
