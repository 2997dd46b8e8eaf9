package tests

import (
	"context"
	"testing"

	"github.com/blingmoon/ezyflow/internal/commonregister"
	"github.com/blingmoon/ezyflow/workflow"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	ownerID   = "1"
	managerID = "7"
	financeID = "8"
	staffID   = "20"
)

// setupTestService 创建测试服务, sqlite内存库 + 本地锁
func setupTestService(t *testing.T, opts ...workflow.AppServiceOption) workflow.AppService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&workflow.AppBlobPo{})
	require.NoError(t, err)

	repo := workflow.NewGormAppStoreRepo(db)
	lock := workflow.NewLocalAppStoreLock()
	return workflow.NewAppService(repo, lock, opts...)
}

// setupExpenseApp 报销审批: 提交 -> 经理审批(7) -> 财务打款(8)
func setupExpenseApp(t *testing.T, service workflow.AppService) *workflow.Application {
	t.Helper()
	app, err := commonregister.RegisterExpenseApproval(context.Background(), service, &commonregister.ExpenseApprovalParams{
		OwnerID:   ownerID,
		ManagerID: managerID,
		FinanceID: financeID,
	})
	require.NoError(t, err)
	return app
}

func expenseData(amount string) map[string]string {
	return map[string]string{
		commonregister.ExpenseFieldTitle:    "上海出差",
		commonregister.ExpenseFieldAmount:   amount,
		commonregister.ExpenseFieldCategory: "Travel",
		commonregister.ExpenseFieldDate:     "2026-03-01",
	}
}

func submitExpense(t *testing.T, service workflow.AppService, appID string) *workflow.LiveRequest {
	t.Helper()
	request, err := service.SubmitRequest(context.Background(), &workflow.SubmitRequestReq{
		AppID:   appID,
		Data:    expenseData("1200"),
		ActorID: staffID,
	})
	require.NoError(t, err)
	return request
}
