package workflow

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Engine 请求流转的状态机
// 所有方法都不修改入参, 返回新的应用快照, 调用方用返回值替换旧值
type Engine struct {
	now func() time.Time
}

type EngineOption func(*Engine)

// WithClock 替换时间来源, 测试用
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FormatRequestID 请求id: REQ- + 序号, 序号至少两位
func FormatRequestID(seq int) string {
	return fmt.Sprintf("REQ-%02d", seq)
}

// timestamp 存储统一用UTC, 并且不早于上一条history, 保证history按时间有序
func (e *Engine) timestamp(history []HistoryRecord) time.Time {
	now := e.now().UTC()
	if n := len(history); n > 0 && now.Before(history[n-1].Timestamp) {
		return history[n-1].Timestamp
	}
	return now
}

/**
 * @description: 提交一个新请求
 *               锚点是start模块(没有就是第一个模块), 请求指向锚点的下一个模块(只有一个模块时指向锚点本身)
 *               应用没有模块时什么都不做, 返回原应用和nil请求
 * @param app *Application 工作流定义
 * @param data map[string]string 提交的表单数据, key是字段label
 * @param actorID string 提交人
 * @return *Application 新的应用快照
 * @return *LiveRequest 新建的请求
 * @return error 表单校验失败返回*ValidationError
 */
func (e *Engine) Submit(app *Application, data map[string]string, actorID string) (*Application, *LiveRequest, error) {
	if app == nil {
		return nil, nil, errors.Wrap(ErrWorkflowParamInvalid, "Submit failed, app is nil")
	}
	anchor, anchorIndex := app.AnchorModule()
	if anchor == nil {
		return app, nil, nil
	}
	if err := ValidateSubmission(anchor.FormFields(), data); err != nil {
		return nil, nil, errors.WithMessagef(err, "Submit failed, appID: %s", app.ID)
	}
	next := anchor
	if anchorIndex+1 < len(app.Modules) {
		next = app.Modules[anchorIndex+1]
	}
	now := e.timestamp(nil)
	submitted := make(map[string]string, len(data))
	for k, v := range data {
		submitted[k] = v
	}
	request := &LiveRequest{
		ID:              FormatRequestID(len(app.Requests) + 1),
		AppID:           app.ID,
		Data:            submitted,
		Status:          RequestStatusPending,
		CurrentModuleID: next.ID,
		CreatedAt:       NewRequestTime(now),
		History: []HistoryRecord{
			{ModuleID: anchor.ID, Action: ActionSubmitted, Timestamp: now, ActorID: actorID},
		},
	}
	ret := app.Clone()
	// 最新的请求放在最前面
	requests := make([]*LiveRequest, 0, len(app.Requests)+1)
	requests = append(requests, request.Clone())
	ret.Requests = append(requests, ret.Requests...)
	return ret, request, nil
}

// NextStatus 流转后的状态: 最后一个模块一定是completed, 不管action是什么
// 其他模块上REJECTED是rejected, 剩下的都是pending
func NextStatus(isLast bool, action string) RequestStatus {
	if isLast {
		return RequestStatusCompleted
	}
	if action == ActionRejected {
		return RequestStatusRejected
	}
	return RequestStatusPending
}

/**
 * @description: 请求在当前模块上执行一个动作, 前进一步
 *               引擎不检查处理人, 调用方负责(见CanAct)
 * @param app *Application 工作流定义
 * @param requestID string 请求id
 * @param action string 动作, APPROVED/REJECTED/COMPLETED等
 * @param actorID string 操作人
 * @return *Application 新的应用快照
 * @return *LiveRequest 流转后的请求
 * @return error 请求已结束返回ErrLiveRequestTerminal, 当前模块不存在返回ErrDanglingModuleReference
 */
func (e *Engine) Transition(app *Application, requestID string, action string, actorID string) (*Application, *LiveRequest, error) {
	if app == nil {
		return nil, nil, errors.Wrap(ErrWorkflowParamInvalid, "Transition failed, app is nil")
	}
	request, requestIndex := app.FindRequest(requestID)
	if request == nil {
		return nil, nil, errors.WithMessagef(ErrLiveRequestNotFound, "appID: %s, requestID: %s", app.ID, requestID)
	}
	if request.IsOver() {
		return nil, nil, errors.WithMessagef(ErrLiveRequestTerminal, "appID: %s, requestID: %s, status: %s", app.ID, requestID, request.Status)
	}
	_, currentIndex := app.FindModule(request.CurrentModuleID)
	if currentIndex < 0 {
		return nil, nil, errors.WithMessagef(ErrDanglingModuleReference, "appID: %s, requestID: %s, moduleID: %s", app.ID, requestID, request.CurrentModuleID)
	}
	isLast := currentIndex == len(app.Modules)-1
	next := app.Modules[currentIndex]
	if !isLast {
		next = app.Modules[currentIndex+1]
	}

	updated := request.Clone()
	updated.Status = NextStatus(isLast, action)
	updated.CurrentModuleID = next.ID
	updated.History = append(updated.History, HistoryRecord{
		ModuleID:  request.CurrentModuleID,
		Action:    action,
		Timestamp: e.timestamp(request.History),
		ActorID:   actorID,
	})

	ret := app.Clone()
	ret.Requests[requestIndex] = updated.Clone()
	return ret, updated, nil
}
