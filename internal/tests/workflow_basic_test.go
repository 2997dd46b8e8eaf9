package tests

import (
	"context"
	"testing"

	"github.com/blingmoon/ezyflow/workflow"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplicationDesign 测试应用设计阶段
func TestApplicationDesign(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	t.Run("新建应用", func(t *testing.T) {
		app, err := service.CreateApplication(ctx, &workflow.CreateApplicationReq{Name: "请假", Department: "人事", ActorID: ownerID})
		require.NoError(t, err)
		assert.NotEmpty(t, app.ID)
		assert.False(t, app.IsPublished)
		assert.Empty(t, app.Modules)

		got, err := service.GetApplication(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, app, got)
	})

	t.Run("参数校验", func(t *testing.T) {
		_, err := service.CreateApplication(ctx, &workflow.CreateApplicationReq{Name: "", ActorID: ownerID})
		assert.True(t, errors.Is(err, workflow.ErrWorkflowParamInvalid))
		_, err = service.CreateApplication(ctx, &workflow.CreateApplicationReq{Name: "x"})
		assert.True(t, errors.Is(err, workflow.ErrWorkflowParamInvalid))
		_, err = service.CreateApplication(ctx, nil)
		assert.True(t, errors.Is(err, workflow.ErrWorkflowParamInvalid))
		_, err = service.AddModule(ctx, &workflow.AddModuleReq{AppID: "x", Kind: "loop", ActorID: ownerID})
		assert.True(t, errors.Is(err, workflow.ErrWorkflowParamInvalid))
	})

	t.Run("加模块改模块删模块", func(t *testing.T) {
		app, err := service.CreateApplication(ctx, &workflow.CreateApplicationReq{Name: "采购", ActorID: ownerID})
		require.NoError(t, err)

		start, err := service.AddModule(ctx, &workflow.AddModuleReq{AppID: app.ID, Kind: workflow.ModuleKindStart, ActorID: ownerID})
		require.NoError(t, err)
		assert.Equal(t, "App Entry", start.Label)
		task, err := service.AddModule(ctx, &workflow.AddModuleReq{AppID: app.ID, Kind: workflow.ModuleKindUserTask, Label: "填写供应商", ActorID: ownerID})
		require.NoError(t, err)
		assert.Equal(t, "填写供应商", task.Label)
		assert.Equal(t, workflow.DefaultAssigneeID, task.AssigneeID())

		desc := "采购部填写"
		updated, err := service.UpdateModule(ctx, &workflow.UpdateModuleReq{AppID: app.ID, ModuleID: task.ID, Description: &desc, ActorID: ownerID})
		require.NoError(t, err)
		assert.Equal(t, "采购部填写", updated.Description)
		assert.Equal(t, "填写供应商", updated.Label)

		_, err = service.UpdateModule(ctx, &workflow.UpdateModuleReq{AppID: app.ID, ModuleID: task.ID, Config: &workflow.EndConfig{}, ActorID: ownerID})
		assert.True(t, errors.Is(err, workflow.ErrWorkflowParamInvalid))

		require.NoError(t, service.DeleteModule(ctx, &workflow.DeleteModuleReq{AppID: app.ID, ModuleID: start.ID, ActorID: ownerID}))
		got, err := service.GetApplication(ctx, app.ID)
		require.NoError(t, err)
		require.Len(t, got.Modules, 1)
		assert.Equal(t, task.ID, got.Modules[0].ID)

		err = service.DeleteModule(ctx, &workflow.DeleteModuleReq{AppID: app.ID, ModuleID: start.ID, ActorID: ownerID})
		assert.True(t, errors.Is(err, workflow.ErrModuleNotFound))
	})

	t.Run("应用不存在", func(t *testing.T) {
		_, err := service.GetApplication(ctx, "app-missing")
		assert.True(t, errors.Is(err, workflow.ErrApplicationNotFound))
		_, err = service.AddModule(ctx, &workflow.AddModuleReq{AppID: "app-missing", Kind: workflow.ModuleKindStart, ActorID: ownerID})
		assert.True(t, errors.Is(err, workflow.ErrApplicationNotFound))
	})

	t.Run("权限切换", func(t *testing.T) {
		app, err := service.CreateApplication(ctx, &workflow.CreateApplicationReq{Name: "权限", ActorID: ownerID})
		require.NoError(t, err)
		app, err = service.ToggleAccess(ctx, &workflow.ToggleAccessReq{AppID: app.ID, Role: workflow.AccessRoleMembers, UserID: staffID, ActorID: ownerID})
		require.NoError(t, err)
		assert.Equal(t, []string{staffID}, app.Access.Members)
		app, err = service.ToggleAccess(ctx, &workflow.ToggleAccessReq{AppID: app.ID, Role: workflow.AccessRoleMembers, UserID: staffID, ActorID: ownerID})
		require.NoError(t, err)
		assert.Empty(t, app.Access.Members)

		_, err = service.ToggleAccess(ctx, &workflow.ToggleAccessReq{AppID: app.ID, Role: "admins", UserID: staffID, ActorID: ownerID})
		assert.True(t, errors.Is(err, workflow.ErrWorkflowParamInvalid))
	})

	t.Run("模块目录", func(t *testing.T) {
		templates := service.ListModuleTemplates(ctx)
		assert.Len(t, templates, len(workflow.AllModuleKinds))
	})
}

// TestRequestLifecycle 测试请求从提交到完成
func TestRequestLifecycle(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()
	app := setupExpenseApp(t, service)
	require.True(t, app.IsPublished)
	require.Len(t, app.Modules, 3)
	review, payout := app.Modules[1], app.Modules[2]

	t.Run("审批通过后财务完成", func(t *testing.T) {
		request := submitExpense(t, service, app.ID)
		assert.Equal(t, "REQ-01", request.ID)
		assert.Equal(t, review.ID, request.CurrentModuleID)
		assert.Equal(t, workflow.RequestStatusPending, request.Status)

		request, err := service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionApproved, ActorID: managerID})
		require.NoError(t, err)
		assert.Equal(t, payout.ID, request.CurrentModuleID)
		assert.Equal(t, workflow.RequestStatusPending, request.Status)

		request, err = service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionCompleted, ActorID: financeID})
		require.NoError(t, err)
		assert.Equal(t, workflow.RequestStatusCompleted, request.Status)
		assert.Equal(t, payout.ID, request.CurrentModuleID)

		actions := make([]string, 0)
		actors := make([]string, 0)
		for _, h := range request.History {
			actions = append(actions, h.Action)
			actors = append(actors, h.ActorID)
		}
		assert.Equal(t, []string{workflow.ActionSubmitted, workflow.ActionApproved, workflow.ActionCompleted}, actions)
		assert.Equal(t, []string{staffID, managerID, financeID}, actors)

		// 结束之后不能再操作
		_, err = service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionCompleted, ActorID: financeID})
		assert.True(t, errors.Is(err, workflow.ErrLiveRequestTerminal))
	})

	t.Run("经理驳回", func(t *testing.T) {
		request := submitExpense(t, service, app.ID)
		assert.Equal(t, "REQ-02", request.ID)
		request, err := service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionRejected, ActorID: managerID})
		require.NoError(t, err)
		assert.Equal(t, workflow.RequestStatusRejected, request.Status)
		// 驳回也会前进
		assert.Equal(t, payout.ID, request.CurrentModuleID)

		_, err = service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionCompleted, ActorID: financeID})
		assert.True(t, errors.Is(err, workflow.ErrLiveRequestTerminal))
	})

	t.Run("不是处理人不能操作", func(t *testing.T) {
		request := submitExpense(t, service, app.ID)
		for _, actor := range []string{staffID, financeID, ownerID} {
			_, err := service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionApproved, ActorID: actor})
			assert.True(t, errors.Is(err, workflow.ErrActorNotAssignee), actor)
		}
		got, err := service.GetApplication(ctx, app.ID)
		require.NoError(t, err)
		stored, _ := got.FindRequest(request.ID)
		assert.Len(t, stored.History, 1)
	})

	t.Run("动作和模块类型不匹配", func(t *testing.T) {
		request := submitExpense(t, service, app.ID)
		_, err := service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionCompleted, ActorID: managerID})
		assert.True(t, errors.Is(err, workflow.ErrActionNotAllowed))
		_, err = service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: "SEND_BACK", ActorID: managerID})
		assert.True(t, errors.Is(err, workflow.ErrWorkflowParamInvalid))
	})

	t.Run("表单校验", func(t *testing.T) {
		_, err := service.SubmitRequest(ctx, &workflow.SubmitRequestReq{AppID: app.ID, Data: expenseData("很多"), ActorID: staffID})
		require.Error(t, err)
		assert.True(t, errors.Is(err, workflow.ErrSubmissionInvalid))
		var validationErr *workflow.ValidationError
		require.True(t, errors.As(err, &validationErr))
		require.Len(t, validationErr.Fields, 1)
		assert.Equal(t, "2", validationErr.Fields[0].FieldID)
	})

	t.Run("请求不存在", func(t *testing.T) {
		_, err := service.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: "REQ-99", Action: workflow.ActionApproved, ActorID: managerID})
		assert.True(t, errors.Is(err, workflow.ErrLiveRequestNotFound))
	})
}

// TestSubmitPreconditions 测试提交前的检查
func TestSubmitPreconditions(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	app, err := service.CreateApplication(ctx, &workflow.CreateApplicationReq{Name: "草稿", ActorID: ownerID})
	require.NoError(t, err)

	t.Run("未发布", func(t *testing.T) {
		_, err := service.SubmitRequest(ctx, &workflow.SubmitRequestReq{AppID: app.ID, ActorID: staffID})
		assert.True(t, errors.Is(err, workflow.ErrApplicationNotPublished))
	})

	t.Run("没有模块", func(t *testing.T) {
		_, err := service.PublishApplication(ctx, &workflow.PublishApplicationReq{AppID: app.ID, ActorID: ownerID})
		require.NoError(t, err)
		_, err = service.SubmitRequest(ctx, &workflow.SubmitRequestReq{AppID: app.ID, ActorID: staffID})
		assert.True(t, errors.Is(err, workflow.ErrApplicationHasNoModules))
	})

	t.Run("已发布列表", func(t *testing.T) {
		_, err := service.CreateApplication(ctx, &workflow.CreateApplicationReq{Name: "另一个草稿", ActorID: ownerID})
		require.NoError(t, err)
		all, err := service.ListApplications(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		published, err := service.ListPublishedApplications(ctx)
		require.NoError(t, err)
		require.Len(t, published, 1)
		assert.Equal(t, app.ID, published[0].ID)
	})
}
