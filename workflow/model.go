package workflow

import (
	"time"
)

// FormField 表单字段定义, 只在start模块上有意义, 定义提交数据的结构
type FormField struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"` // 只有select类型才有
}

// ModuleConfig 模块配置, 按模块类型区分的联合类型
// 每种类型只声明自己关心的字段, 不存在"这个字段在这里有没有意义"的问题
type ModuleConfig interface {
	Kind() ModuleKind
	Clone() ModuleConfig
}

// StepText 所有模块都有的展示文案
type StepText struct {
	Instruction string `json:"instruction"`
	ActionLabel string `json:"actionLabel"`
}

// Assignment 处理人, 为空表示自动处理(没有人工卡点)
type Assignment struct {
	AssigneeID string `json:"assigneeId,omitempty"`
}

func (a Assignment) Assignee() string {
	return a.AssigneeID
}

type assignable interface {
	Assignee() string
}

type StartConfig struct {
	StepText
	FormFields []FormField `json:"formFields"`
}

func (c *StartConfig) Kind() ModuleKind { return ModuleKindStart }
func (c *StartConfig) Clone() ModuleConfig {
	ret := *c
	ret.FormFields = cloneFormFields(c.FormFields)
	return &ret
}

type UserTaskConfig struct {
	StepText
	Assignment
}

func (c *UserTaskConfig) Kind() ModuleKind { return ModuleKindUserTask }
func (c *UserTaskConfig) Clone() ModuleConfig {
	ret := *c
	return &ret
}

type ApprovalConfig struct {
	StepText
	Assignment
	ApprovalOptions []ApprovalOption `json:"approvalOptions"`
}

func (c *ApprovalConfig) Kind() ModuleKind { return ModuleKindApproval }
func (c *ApprovalConfig) Clone() ModuleConfig {
	ret := *c
	ret.ApprovalOptions = cloneStrings(c.ApprovalOptions)
	return &ret
}

type NotificationConfig struct {
	StepText
	Assignment
	NotificationType NotificationType `json:"notificationType"`
}

func (c *NotificationConfig) Kind() ModuleKind { return ModuleKindNotification }
func (c *NotificationConfig) Clone() ModuleConfig {
	ret := *c
	return &ret
}

type IntegrationConfig struct {
	StepText
	Assignment
}

func (c *IntegrationConfig) Kind() ModuleKind { return ModuleKindIntegration }
func (c *IntegrationConfig) Clone() ModuleConfig {
	ret := *c
	return &ret
}

type EndConfig struct {
	StepText
}

func (c *EndConfig) Kind() ModuleKind { return ModuleKindEnd }
func (c *EndConfig) Clone() ModuleConfig {
	ret := *c
	return &ret
}

func newModuleConfig(kind ModuleKind) (ModuleConfig, bool) {
	switch kind {
	case ModuleKindStart:
		return &StartConfig{}, true
	case ModuleKindUserTask:
		return &UserTaskConfig{}, true
	case ModuleKindApproval:
		return &ApprovalConfig{}, true
	case ModuleKindNotification:
		return &NotificationConfig{}, true
	case ModuleKindIntegration:
		return &IntegrationConfig{}, true
	case ModuleKindEnd:
		return &EndConfig{}, true
	}
	return nil, false
}

// Module 工作流里的一个步骤, id在应用内唯一
type Module struct {
	ID          string
	Kind        ModuleKind
	Label       string
	Description string
	Config      ModuleConfig
}

// AssigneeID 当前模块的处理人, 没有处理人返回空字符串
func (m *Module) AssigneeID() string {
	if m == nil || m.Config == nil {
		return ""
	}
	if a, ok := m.Config.(assignable); ok {
		return a.Assignee()
	}
	return ""
}

// FormFields start模块的表单定义, 其他模块返回nil
func (m *Module) FormFields() []FormField {
	if m == nil {
		return nil
	}
	if c, ok := m.Config.(*StartConfig); ok {
		return c.FormFields
	}
	return nil
}

func (m *Module) Clone() *Module {
	if m == nil {
		return nil
	}
	ret := *m
	if m.Config != nil {
		ret.Config = m.Config.Clone()
	}
	return &ret
}

// Access 应用的访问控制
type Access struct {
	Owners   []string `json:"owners"`
	Managers []string `json:"managers"`
	Members  []string `json:"members"`
}

func (a Access) Clone() Access {
	return Access{
		Owners:   cloneStrings(a.Owners),
		Managers: cloneStrings(a.Managers),
		Members:  cloneStrings(a.Members),
	}
}

// HistoryRecord 请求的流转记录, 只追加不修改
type HistoryRecord struct {
	ModuleID  string    `json:"moduleId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId"`
}

// RequestTime 请求的创建时间
// 旧数据里存的是本地日期字符串, 解析不了时Time为零值, Raw保留原文, 写回时原样输出
type RequestTime struct {
	Time time.Time
	Raw  string
}

func NewRequestTime(t time.Time) RequestTime {
	return RequestTime{Time: t}
}

// LiveRequest 已发布应用上的一次提交
type LiveRequest struct {
	ID              string            `json:"id"`
	AppID           string            `json:"appId"`
	Data            map[string]string `json:"data"` // 字段label -> 提交的值
	Status          RequestStatus     `json:"status"`
	CurrentModuleID string            `json:"currentModuleId"`
	CreatedAt       RequestTime       `json:"createdAt"`
	History         []HistoryRecord   `json:"history"`
}

func (r *LiveRequest) Clone() *LiveRequest {
	if r == nil {
		return nil
	}
	ret := *r
	if r.Data != nil {
		ret.Data = make(map[string]string, len(r.Data))
		for k, v := range r.Data {
			ret.Data[k] = v
		}
	}
	if r.History != nil {
		ret.History = make([]HistoryRecord, len(r.History))
		copy(ret.History, r.History)
	}
	return &ret
}

// IsOver 请求是否已经结束
func (r *LiveRequest) IsOver() bool {
	return IsOverRequestStatus(r.Status)
}

// Application 工作流定义, 也就是发布出去的应用
// 模块的顺序就是执行顺序, 没有分支
type Application struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Department  string         `json:"department"`
	IsPublished bool           `json:"isPublished"`
	Modules     []*Module      `json:"modules"`
	Access      Access         `json:"access"`
	Requests    []*LiveRequest `json:"requests"` // 最新的在前面
}

func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	ret := *a
	if a.Modules != nil {
		ret.Modules = make([]*Module, 0, len(a.Modules))
		for _, m := range a.Modules {
			ret.Modules = append(ret.Modules, m.Clone())
		}
	}
	ret.Access = a.Access.Clone()
	if a.Requests != nil {
		ret.Requests = make([]*LiveRequest, 0, len(a.Requests))
		for _, r := range a.Requests {
			ret.Requests = append(ret.Requests, r.Clone())
		}
	}
	return &ret
}

// FindModule 按id查找模块, 找不到返回-1
func (a *Application) FindModule(moduleID string) (*Module, int) {
	for i, m := range a.Modules {
		if m.ID == moduleID {
			return m, i
		}
	}
	return nil, -1
}

// AnchorModule 提交的锚点: start模块, 没有start就是第一个模块
func (a *Application) AnchorModule() (*Module, int) {
	if len(a.Modules) == 0 {
		return nil, -1
	}
	for i, m := range a.Modules {
		if m.Kind == ModuleKindStart {
			return m, i
		}
	}
	return a.Modules[0], 0
}

// FindRequest 按id查找请求, 找不到返回-1
func (a *Application) FindRequest(requestID string) (*LiveRequest, int) {
	for i, r := range a.Requests {
		if r.ID == requestID {
			return r, i
		}
	}
	return nil, -1
}

// CurrentModule 请求当前所在的模块
func (a *Application) CurrentModule(r *LiveRequest) *Module {
	m, _ := a.FindModule(r.CurrentModuleID)
	return m
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	ret := make([]string, len(s))
	copy(ret, s)
	return ret
}

func cloneFormFields(fields []FormField) []FormField {
	if fields == nil {
		return nil
	}
	ret := make([]FormField, 0, len(fields))
	for _, f := range fields {
		f.Options = cloneStrings(f.Options)
		ret = append(ret, f)
	}
	return ret
}

// CloneApplications 深拷贝应用列表
func CloneApplications(apps []*Application) []*Application {
	if apps == nil {
		return nil
	}
	ret := make([]*Application, 0, len(apps))
	for _, app := range apps {
		ret = append(ret, app.Clone())
	}
	return ret
}
