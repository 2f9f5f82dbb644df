package logging

import (
	"context"
	"strconv"
)

const (
	TraceIDKey     = "trace_id"
	TimeIDKey      = "time_id"
	DocumentIDKey  = "document_id"
	ServiceNameKey = "service_name"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithTimeID(ctx context.Context, timeID float64) context.Context {
	return context.WithValue(ctx, TimeIDKey, timeID)
}

func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentIDKey, documentID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func GetTimeID(ctx context.Context) float64 {
	if timeID, ok := ctx.Value(TimeIDKey).(float64); ok {
		return timeID
	}
	return 0
}

func GetDocumentID(ctx context.Context) string {
	if documentID, ok := ctx.Value(DocumentIDKey).(string); ok {
		return documentID
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}

	if timeID := GetTimeID(ctx); timeID != 0 {
		fields = append(fields, "time_id", strconv.FormatFloat(timeID, 'f', -1, 64))
	}

	if documentID := GetDocumentID(ctx); documentID != "" {
		fields = append(fields, "document_id", documentID)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
