// Package logger provides structured logging for tuamail on top of log/slog.
//
// Every logger built by New shares one level variable, so SetLevel takes
// effect process-wide. Records logged with a context carry the request id
// and caller placed there by WithRequestID and WithCaller; L(ctx) returns a
// logger already bound to ctx.
//
// Message payloads (email subject and body, chat content) are never written
// to the log; only their length survives. Attributes whose key looks like a
// secret are replaced with a placeholder.
package logger
