package tests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blingmoon/ezyflow/workflow"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisServices 多个服务实例共用一个redis: redis存储 + redis锁
func setupRedisServices(t *testing.T, n int) []workflow.AppService {
	t.Helper()
	mr := miniredis.RunT(t)
	services := make([]workflow.AppService, 0, n)
	for i := 0; i < n; i++ {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		services = append(services, workflow.NewAppService(
			workflow.NewRedisAppStoreRepo(client, "ezyflow:"),
			workflow.NewRedisAppStoreLock(client),
			workflow.WithLockTTL(10*time.Second),
		))
	}
	return services
}

// retryOnLock 非阻塞锁拿不到就重试
func retryOnLock[T any](f func() (T, error)) (T, error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		ret, err := f()
		if err == nil || !errors.Is(err, workflow.LockFailedError) || time.Now().After(deadline) {
			return ret, err
		}
		time.Sleep(time.Millisecond)
	}
}

// TestMultiInstanceScenario 两个实例共用存储: 一个设计, 一个处理
func TestMultiInstanceScenario(t *testing.T) {
	services := setupRedisServices(t, 2)
	designer, runtime := services[0], services[1]
	ctx := context.Background()

	app := setupExpenseApp(t, designer)

	published, err := runtime.ListPublishedApplications(ctx)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, app.ID, published[0].ID)

	request := submitExpense(t, runtime, app.ID)
	notifications, err := designer.ListNotifications(ctx, managerID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, request.ID, notifications[0].Request.ID)

	_, err = designer.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionApproved, ActorID: managerID})
	require.NoError(t, err)
	updated, err := runtime.ActOnRequest(ctx, &workflow.ActOnRequestReq{AppID: app.ID, RequestID: request.ID, Action: workflow.ActionCompleted, ActorID: financeID})
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestStatusCompleted, updated.Status)
	assert.Len(t, updated.History, 3)
}

// TestConcurrentSubmissions 并发提交, 请求编号不重复也不丢失
func TestConcurrentSubmissions(t *testing.T) {
	services := setupRedisServices(t, 3)
	ctx := context.Background()
	app := setupExpenseApp(t, services[0])

	const perService = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make([]string, 0)
	for i, service := range services {
		for j := 0; j < perService; j++ {
			wg.Add(1)
			go func(service workflow.AppService, n int) {
				defer wg.Done()
				request, err := retryOnLock(func() (*workflow.LiveRequest, error) {
					return service.SubmitRequest(ctx, &workflow.SubmitRequestReq{
						AppID:   app.ID,
						Data:    expenseData(fmt.Sprintf("%d", 100+n)),
						ActorID: staffID,
					})
				})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids = append(ids, request.ID)
				mu.Unlock()
			}(service, i*perService+j)
		}
	}
	wg.Wait()

	total := len(services) * perService
	expected := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		expected = append(expected, workflow.FormatRequestID(i))
	}
	sort.Strings(ids)
	assert.Equal(t, expected, ids)

	got, err := services[2].GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, got.Requests, total)
}
