package workflow

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// 设计阶段的操作, 和引擎一样不修改入参, 返回新快照

// NewApplicationID 应用id, 全局唯一
func NewApplicationID() string {
	return "app-" + uuid.NewString()
}

// NewApplication 新建一个空应用, 未发布
func NewApplication(id string, name string, department string) (*Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(ErrWorkflowParamInvalid, "NewApplication failed, name is empty")
	}
	if id == "" {
		id = NewApplicationID()
	}
	return &Application{
		ID:          id,
		Name:        name,
		Department:  department,
		IsPublished: false,
		Modules:     make([]*Module, 0),
		Access: Access{
			Owners:   make([]string, 0),
			Managers: make([]string, 0),
			Members:  make([]string, 0),
		},
		Requests: make([]*LiveRequest, 0),
	}, nil
}

// AppendModule 把模块加到序列末尾, id在应用内不能重复
func AppendModule(app *Application, module *Module) (*Application, error) {
	if module == nil {
		return nil, errors.Wrap(ErrWorkflowParamInvalid, "AppendModule failed, module is nil")
	}
	if !IsValidModuleKind(module.Kind) {
		return nil, errors.WithMessagef(ErrModuleKindUnknown, "AppendModule failed, kind: %s", module.Kind)
	}
	if m, _ := app.FindModule(module.ID); m != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "AppendModule failed, module id duplicated: %s", module.ID)
	}
	if err := ValidateModuleConfig(module.Kind, module.Config); err != nil {
		return nil, errors.WithMessagef(err, "AppendModule failed, moduleID: %s", module.ID)
	}
	ret := app.Clone()
	ret.Modules = append(ret.Modules, module.Clone())
	return ret, nil
}

// ModulePatch 模块更新内容, nil表示不修改; 模块类型不能改
type ModulePatch struct {
	Label       *string
	Description *string
	Config      ModuleConfig
}

// UpdateModule 按id原地替换模块
func UpdateModule(app *Application, moduleID string, patch ModulePatch) (*Application, error) {
	module, index := app.FindModule(moduleID)
	if module == nil {
		return nil, errors.WithMessagef(ErrModuleNotFound, "UpdateModule failed, appID: %s, moduleID: %s", app.ID, moduleID)
	}
	updated := module.Clone()
	if patch.Label != nil {
		updated.Label = *patch.Label
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Config != nil {
		if err := ValidateModuleConfig(module.Kind, patch.Config); err != nil {
			return nil, errors.WithMessagef(err, "UpdateModule failed, moduleID: %s", moduleID)
		}
		updated.Config = patch.Config.Clone()
	}
	ret := app.Clone()
	ret.Modules[index] = updated
	return ret, nil
}

// DeleteModule 从序列中删除模块
// 已有请求的history里保留旧的moduleId, 指向这个模块的进行中请求会变成悬空引用
func DeleteModule(app *Application, moduleID string) (*Application, error) {
	_, index := app.FindModule(moduleID)
	if index < 0 {
		return nil, errors.WithMessagef(ErrModuleNotFound, "DeleteModule failed, appID: %s, moduleID: %s", app.ID, moduleID)
	}
	ret := app.Clone()
	ret.Modules = append(ret.Modules[:index], ret.Modules[index+1:]...)
	return ret, nil
}

// DanglingRequests 当前模块已经不在序列里的未结束请求
func DanglingRequests(app *Application) []*LiveRequest {
	ret := make([]*LiveRequest, 0)
	for _, r := range app.Requests {
		if r.IsOver() {
			continue
		}
		if m, _ := app.FindModule(r.CurrentModuleID); m == nil {
			ret = append(ret, r)
		}
	}
	return ret
}

// ToggleAccess 用户在角色里就移除, 不在就加上
func ToggleAccess(app *Application, role AccessRole, userID string) (*Application, error) {
	if userID == "" {
		return nil, errors.Wrap(ErrWorkflowParamInvalid, "ToggleAccess failed, userID is empty")
	}
	ret := app.Clone()
	var members *[]string
	switch role {
	case AccessRoleOwners:
		members = &ret.Access.Owners
	case AccessRoleManagers:
		members = &ret.Access.Managers
	case AccessRoleMembers:
		members = &ret.Access.Members
	default:
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "ToggleAccess failed, role: %s", role)
	}
	next := make([]string, 0, len(*members)+1)
	found := false
	for _, id := range *members {
		if id == userID {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, userID)
	}
	*members = next
	return ret, nil
}

// Publish 发布应用, 发布之后才能从外部提交请求
func Publish(app *Application) *Application {
	ret := app.Clone()
	ret.IsPublished = true
	return ret
}

// FindApplication 按id查找应用, 找不到返回-1
func FindApplication(apps []*Application, appID string) (*Application, int) {
	for i, app := range apps {
		if app.ID == appID {
			return app, i
		}
	}
	return nil, -1
}

// SaveApplication 存在就按id替换, 不存在追加到末尾
func SaveApplication(apps []*Application, app *Application) []*Application {
	ret := make([]*Application, 0, len(apps)+1)
	replaced := false
	for _, a := range apps {
		if a.ID == app.ID {
			ret = append(ret, app)
			replaced = true
			continue
		}
		ret = append(ret, a)
	}
	if !replaced {
		ret = append(ret, app)
	}
	return ret
}

// PublishedApplications 已发布的应用
func PublishedApplications(apps []*Application) []*Application {
	ret := make([]*Application, 0)
	for _, app := range apps {
		if app.IsPublished {
			ret = append(ret, app)
		}
	}
	return ret
}
