package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type moduleJSON struct {
	ID          string          `json:"id"`
	Kind        ModuleKind      `json:"type"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config,omitempty"`
}

func (m Module) MarshalJSON() ([]byte, error) {
	out := moduleJSON{
		ID:          m.ID,
		Kind:        m.Kind,
		Label:       m.Label,
		Description: m.Description,
	}
	if m.Config != nil {
		if m.Config.Kind() != m.Kind {
			return nil, errors.WithMessagef(ErrModuleKindUnknown, "module %s kind %s has config of kind %s", m.ID, m.Kind, m.Config.Kind())
		}
		raw, err := json.Marshal(m.Config)
		if err != nil {
			return nil, errors.WithMessagef(err, "marshal config failed, moduleID: %s", m.ID)
		}
		out.Config = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON 先读type, 再按type解析config
func (m *Module) UnmarshalJSON(b []byte) error {
	in := moduleJSON{}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	m.ID = in.ID
	m.Kind = in.Kind
	m.Label = in.Label
	m.Description = in.Description
	m.Config = nil
	if len(in.Config) == 0 || string(in.Config) == "null" {
		return nil
	}
	cfg, ok := newModuleConfig(in.Kind)
	if !ok {
		return errors.WithMessagef(ErrModuleKindUnknown, "module %s kind %q", in.ID, in.Kind)
	}
	if err := json.Unmarshal(in.Config, cfg); err != nil {
		return errors.WithMessagef(err, "unmarshal config failed, moduleID: %s", in.ID)
	}
	m.Config = cfg
	return nil
}

// EncodeApplications 序列化整个应用列表, 这就是存储里的blob
// legacyDateLayouts 浏览器toLocaleDateString常见的格式, 按顺序尝试
// 月/日和日/月有歧义时先按月/日
var legacyDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2/1/2006",
	"2006/1/2",
	"2.1.2006",
}

func (t RequestTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() && t.Raw != "" {
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON 先按RFC3339解析, 再试本地日期格式, 都不行就保留原文, 不返回错误
func (t *RequestTime) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.WithMessagef(err, "createdAt must be a string, got %s", string(b))
	}
	*t = RequestTime{}
	if raw == nil {
		return nil
	}
	text := strings.TrimSpace(*raw)
	if text == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	for _, layout := range legacyDateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Raw = *raw
	return nil
}

func EncodeApplications(apps []*Application) ([]byte, error) {
	if apps == nil {
		apps = make([]*Application, 0)
	}
	b, err := json.Marshal(apps)
	if err != nil {
		return nil, errors.WithMessage(err, "EncodeApplications failed")
	}
	return b, nil
}

// DecodeApplications 反序列化应用列表, 空数据返回空列表
func DecodeApplications(b []byte) ([]*Application, error) {
	apps := make([]*Application, 0)
	if len(b) == 0 {
		return apps, nil
	}
	if err := json.Unmarshal(b, &apps); err != nil {
		return nil, errors.WithMessage(err, "DecodeApplications failed")
	}
	if apps == nil {
		// 存的是null
		apps = make([]*Application, 0)
	}
	return apps, nil
}

// DecodeApplicationsOrEmpty 解析失败当成没有数据, 只记录日志, 不把错误抛给用户
func DecodeApplicationsOrEmpty(ctx context.Context, b []byte) []*Application {
	apps, err := DecodeApplications(b)
	if err != nil {
		slog.WarnContext(ctx, "stored applications unreadable, starting fresh", "err", err)
		return make([]*Application, 0)
	}
	return apps
}
