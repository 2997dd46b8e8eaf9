package commonregister

import (
	"context"

	"github.com/blingmoon/ezyflow/workflow"
	"github.com/pkg/errors"
)

const (
	ExpenseFieldTitle    = workflow.DefaultFormFieldLabel
	ExpenseFieldAmount   = "Amount"
	ExpenseFieldCategory = "Category"
	ExpenseFieldDate     = "Expense Date"
)

// ExpenseApprovalParams 报销审批流程的参与人
type ExpenseApprovalParams struct {
	OwnerID   string // 应用负责人, 也是发起人
	ManagerID string // 经理审批
	FinanceID string // 财务打款
}

// RegisterExpenseApproval 创建并发布一个报销审批应用
// 流程结构: 提交申请 -> 经理审批 -> 财务打款
// 最后一个模块是财务打款, 财务处理后请求completed
func RegisterExpenseApproval(ctx context.Context, service workflow.AppService, params *ExpenseApprovalParams) (*workflow.Application, error) {
	app, err := service.CreateApplication(ctx, &workflow.CreateApplicationReq{
		Name:       "Expense Approval",
		Department: "Finance",
		ActorID:    params.OwnerID,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "create expense app failed")
	}

	// 1. 提交申请, 表单字段换成报销需要的
	start, err := service.AddModule(ctx, &workflow.AddModuleReq{
		AppID:   app.ID,
		Kind:    workflow.ModuleKindStart,
		Label:   "Submit Expense",
		ActorID: params.OwnerID,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "add start module failed")
	}
	_, err = service.UpdateModule(ctx, &workflow.UpdateModuleReq{
		AppID:    app.ID,
		ModuleID: start.ID,
		Config: &workflow.StartConfig{
			StepText: workflow.StepText{Instruction: "Fill in the expense.", ActionLabel: "Submit"},
			FormFields: []workflow.FormField{
				{ID: "1", Label: ExpenseFieldTitle, Kind: workflow.FieldKindText, Required: true},
				{ID: "2", Label: ExpenseFieldAmount, Kind: workflow.FieldKindNumber, Required: true},
				{ID: "3", Label: ExpenseFieldCategory, Kind: workflow.FieldKindSelect, Required: true, Options: []string{"Travel", "Meals", "Equipment"}},
				{ID: "4", Label: ExpenseFieldDate, Kind: workflow.FieldKindDate},
			},
		},
		ActorID: params.OwnerID,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "update start module failed")
	}

	// 2. 经理审批
	review, err := service.AddModule(ctx, &workflow.AddModuleReq{
		AppID:   app.ID,
		Kind:    workflow.ModuleKindApproval,
		Label:   "Manager Review",
		ActorID: params.OwnerID,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "add approval module failed")
	}
	if err := assign(ctx, service, app.ID, review, params.ManagerID, params.OwnerID); err != nil {
		return nil, err
	}

	// 3. 财务打款
	payout, err := service.AddModule(ctx, &workflow.AddModuleReq{
		AppID:   app.ID,
		Kind:    workflow.ModuleKindIntegration,
		Label:   "Finance Payout",
		ActorID: params.OwnerID,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "add integration module failed")
	}
	if err := assign(ctx, service, app.ID, payout, params.FinanceID, params.OwnerID); err != nil {
		return nil, err
	}

	for role, userID := range map[workflow.AccessRole]string{
		workflow.AccessRoleOwners:   params.OwnerID,
		workflow.AccessRoleManagers: params.ManagerID,
		workflow.AccessRoleMembers:  params.FinanceID,
	} {
		if _, err := service.ToggleAccess(ctx, &workflow.ToggleAccessReq{AppID: app.ID, Role: role, UserID: userID, ActorID: params.OwnerID}); err != nil {
			return nil, errors.WithMessagef(err, "grant %s failed", role)
		}
	}

	published, err := service.PublishApplication(ctx, &workflow.PublishApplicationReq{AppID: app.ID, ActorID: params.OwnerID})
	if err != nil {
		return nil, errors.WithMessage(err, "publish expense app failed")
	}
	return published, nil
}

// assign 把模块的处理人换成assigneeID, 其他配置不变
func assign(ctx context.Context, service workflow.AppService, appID string, module *workflow.Module, assigneeID string, actorID string) error {
	var cfg workflow.ModuleConfig
	switch c := module.Config.(type) {
	case *workflow.ApprovalConfig:
		c.AssigneeID = assigneeID
		cfg = c
	case *workflow.IntegrationConfig:
		c.AssigneeID = assigneeID
		cfg = c
	default:
		return errors.Errorf("module %s of kind %s can not be assigned", module.ID, module.Kind)
	}
	_, err := service.UpdateModule(ctx, &workflow.UpdateModuleReq{AppID: appID, ModuleID: module.ID, Config: cfg, ActorID: actorID})
	if err != nil {
		return errors.WithMessagef(err, "assign module %s failed", module.ID)
	}
	return nil
}
