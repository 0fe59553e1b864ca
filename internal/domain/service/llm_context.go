// Package service 领域服务层的跨切面辅助
package service

import (
	"context"
	"strings"
)

// 工作流名与 provider 随 context 传给全局 LLM callbacks，
// 指标和 span 属性都从这里取
type llmCtxKey int

const (
	llmCtxKeyWorkflow llmCtxKey = iota
	llmCtxKeyProvider
)

const llmCtxUnknown = "unknown"

// WithWorkflowProvider 把场景工作流名与模型 provider 写入 context
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	if w := strings.TrimSpace(workflow); w != "" {
		ctx = context.WithValue(ctx, llmCtxKeyWorkflow, w)
	}
	if p := strings.TrimSpace(provider); p != "" {
		ctx = context.WithValue(ctx, llmCtxKeyProvider, p)
	}
	return ctx
}

// WorkflowFromContext 取当前 LLM 调用所属的工作流名
func WorkflowFromContext(ctx context.Context) string {
	return llmCtxValue(ctx, llmCtxKeyWorkflow)
}

// ProviderFromContext 取当前 LLM 调用的 provider 名
func ProviderFromContext(ctx context.Context) string {
	return llmCtxValue(ctx, llmCtxKeyProvider)
}

func llmCtxValue(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return llmCtxUnknown
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return llmCtxUnknown
	}
	return s
}
