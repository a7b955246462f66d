package ctxkeys

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	chatIDKey    contextKey = "chat_id"
)

// WithRequestID 设置 RequestID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// EnsureRequestID 若 ctx 中没有 RequestID 则生成一个
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := RequestID(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// RequestID 获取 RequestID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithUserID 设置聊天用户 ID
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID 获取聊天用户 ID
func UserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(userIDKey).(int64)
	return v, ok
}

// WithChatID 设置会话 ID
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

// ChatID 获取会话 ID
func ChatID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(chatIDKey).(int64)
	return v, ok
}

// Fields 返回 ctx 中可用于日志关联的字段
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if id, ok := RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if id, ok := UserID(ctx); ok {
		fields = append(fields, zap.Int64("user_id", id))
	}
	if id, ok := ChatID(ctx); ok {
		fields = append(fields, zap.Int64("chat_id", id))
	}
	return fields
}
