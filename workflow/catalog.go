package workflow

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DefaultInstruction    = "Complete this step."
	DefaultActionLabel    = "Submit"
	DefaultAssigneeID     = "1"
	DefaultFormFieldLabel = "Request Title"
)

// ModuleTemplate 模块目录里的模板
type ModuleTemplate struct {
	Kind        ModuleKind
	Label       string
	Description string
}

var moduleTemplates = map[ModuleKind]ModuleTemplate{
	ModuleKindStart:        {Kind: ModuleKindStart, Label: "App Entry", Description: "Web app starting point"},
	ModuleKindUserTask:     {Kind: ModuleKindUserTask, Label: "Data Form", Description: "Collect user inputs"},
	ModuleKindApproval:     {Kind: ModuleKindApproval, Label: "Review Screen", Description: "Manager review & sign-off"},
	ModuleKindNotification: {Kind: ModuleKindNotification, Label: "System Alert", Description: "Automatic email or alert"},
	ModuleKindIntegration:  {Kind: ModuleKindIntegration, Label: "API Bridge", Description: "External service connection"},
	ModuleKindEnd:          {Kind: ModuleKindEnd, Label: "Success Page", Description: "Final completion screen"},
}

// Catalog 模块目录, 纯查表没有状态
type Catalog struct {
	defaultAssigneeID string
	newID             func() string
}

type CatalogOption func(*Catalog)

// WithDefaultAssignee 新建模块默认的处理人
func WithDefaultAssignee(assigneeID string) CatalogOption {
	return func(c *Catalog) {
		c.defaultAssigneeID = assigneeID
	}
}

// WithModuleIDGenerator 替换模块id生成, 测试用
func WithModuleIDGenerator(f func() string) CatalogOption {
	return func(c *Catalog) {
		c.newID = f
	}
}

func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		defaultAssigneeID: DefaultAssigneeID,
		newID: func() string {
			return "mod-" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Templates 按目录顺序返回所有模板
func (c *Catalog) Templates() []ModuleTemplate {
	ret := make([]ModuleTemplate, 0, len(AllModuleKinds))
	for _, kind := range AllModuleKinds {
		ret = append(ret, moduleTemplates[kind])
	}
	return ret
}

func (c *Catalog) Template(kind ModuleKind) (ModuleTemplate, error) {
	t, ok := moduleTemplates[kind]
	if !ok {
		return ModuleTemplate{}, errors.WithMessagef(ErrModuleKindUnknown, "kind: %s", kind)
	}
	return t, nil
}

// NewModule 实例化一个模块: 新id + 该类型的默认配置
func (c *Catalog) NewModule(kind ModuleKind) (*Module, error) {
	t, err := c.Template(kind)
	if err != nil {
		return nil, err
	}
	return &Module{
		ID:          c.newID(),
		Kind:        t.Kind,
		Label:       t.Label,
		Description: t.Description,
		Config:      c.DefaultConfig(kind),
	}, nil
}

// DefaultConfig 各类型模块的默认配置
// start: 一个必填的文本字段; approval: 三个审批选项全开; 中间节点默认处理人
func (c *Catalog) DefaultConfig(kind ModuleKind) ModuleConfig {
	text := StepText{Instruction: DefaultInstruction, ActionLabel: DefaultActionLabel}
	assignment := Assignment{AssigneeID: c.defaultAssigneeID}
	switch kind {
	case ModuleKindStart:
		return &StartConfig{
			StepText: text,
			FormFields: []FormField{
				{ID: "1", Label: DefaultFormFieldLabel, Kind: FieldKindText, Required: true},
			},
		}
	case ModuleKindUserTask:
		return &UserTaskConfig{StepText: text, Assignment: assignment}
	case ModuleKindApproval:
		return &ApprovalConfig{
			StepText:   text,
			Assignment: assignment,
			ApprovalOptions: []ApprovalOption{
				ApprovalOptionApprove,
				ApprovalOptionReject,
				ApprovalOptionSendBack,
			},
		}
	case ModuleKindNotification:
		return &NotificationConfig{StepText: text, Assignment: assignment, NotificationType: NotificationTypeInApp}
	case ModuleKindIntegration:
		return &IntegrationConfig{StepText: text, Assignment: assignment}
	case ModuleKindEnd:
		return &EndConfig{StepText: text}
	}
	return nil
}
