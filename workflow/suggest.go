package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

type SuggestionKind = string

const (
	SuggestionKindAction    SuggestionKind = "action"
	SuggestionKindTrigger   SuggestionKind = "trigger"
	SuggestionKindCondition SuggestionKind = "condition"
)

// Suggestion 生成服务返回的步骤, kind和模块类型不是一套词汇, 需要转换
type Suggestion struct {
	ID          string         `json:"id" validate:"required"`
	Label       string         `json:"label" validate:"required"`
	Description string         `json:"description"`
	Kind        SuggestionKind `json:"type" validate:"oneof=action trigger condition"`
}

// Suggester 根据一段描述生成步骤建议, 外部服务
type Suggester interface {
	Suggest(ctx context.Context, prompt string) ([]Suggestion, error)
}

// ParseSuggestions 解析返回内容, 格式不对返回空列表
// 单条不合法的建议直接丢弃
func ParseSuggestions(ctx context.Context, raw []byte) []Suggestion {
	items := make([]Suggestion, 0)
	if err := json.Unmarshal(trimCodeFence(raw), &items); err != nil {
		slog.WarnContext(ctx, "suggestion response unparseable", "err", err)
		return make([]Suggestion, 0)
	}
	ret := make([]Suggestion, 0, len(items))
	for _, item := range items {
		if err := validatorUtil.Struct(&item); err != nil {
			slog.WarnContext(ctx, "suggestion dropped", "id", item.ID, "err", err)
			continue
		}
		ret = append(ret, item)
	}
	return ret
}

// SuggestionModuleKind trigger->start, condition->approval, action->user_task
func SuggestionModuleKind(kind SuggestionKind) ModuleKind {
	switch kind {
	case SuggestionKindTrigger:
		return ModuleKindStart
	case SuggestionKindCondition:
		return ModuleKindApproval
	}
	return ModuleKindUserTask
}

// TranslateSuggestions 把建议转成目录里的模块, 用建议的label和description
func TranslateSuggestions(catalog *Catalog, suggestions []Suggestion) []*Module {
	ret := make([]*Module, 0, len(suggestions))
	for _, s := range suggestions {
		module, err := catalog.NewModule(SuggestionModuleKind(s.Kind))
		if err != nil {
			continue
		}
		module.Label = s.Label
		module.Description = s.Description
		ret = append(ret, module)
	}
	return ret
}

// trimCodeFence 模型偶尔会把json包在```json ... ```里
func trimCodeFence(raw []byte) []byte {
	text := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(text, "```") {
		return []byte(text)
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(text, "```")
	return []byte(strings.TrimSpace(text))
}
