package workflow

import "slices"

// CanAct 用户是否可以在这个模块上操作: 只有处理人可以
// 没有处理人的模块(自动处理)任何人都不能操作
func CanAct(module *Module, userID string) bool {
	assignee := module.AssigneeID()
	return assignee != "" && assignee == userID
}

// IsAutoResolved 没有处理人的模块, 只做展示, 引擎不会自动推进
func IsAutoResolved(module *Module) bool {
	return module.AssigneeID() == ""
}

// AllowedActions 模块上可以执行的动作
// approval: APPROVED/REJECTED; start/end: 没有; 其他: COMPLETED
func AllowedActions(module *Module) []string {
	if module == nil {
		return nil
	}
	switch module.Kind {
	case ModuleKindApproval:
		return []string{ActionApproved, ActionRejected}
	case ModuleKindStart, ModuleKindEnd:
		return nil
	}
	return []string{ActionCompleted}
}

func IsActionAllowed(module *Module, action string) bool {
	return slices.Contains(AllowedActions(module), action)
}

// Notification 待当前用户处理的请求
type Notification struct {
	App     *Application
	Request *LiveRequest
	Module  *Module
}

// PendingForUser 所有pending并且当前模块处理人是userID的请求
// 每次都全量计算, 不做缓存
func PendingForUser(apps []*Application, userID string) []*Notification {
	ret := make([]*Notification, 0)
	for _, app := range apps {
		for _, request := range app.Requests {
			if request.Status != RequestStatusPending {
				continue
			}
			module := app.CurrentModule(request)
			if module == nil || !CanAct(module, userID) {
				continue
			}
			ret = append(ret, &Notification{App: app, Request: request, Module: module})
		}
	}
	return ret
}
