package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultNamespace       = "ezyflow_database_v1"
	DefaultMaxSaveAttempts = 3
	DefaultLockTTL         = time.Minute
)

// AppServiceImpl 应用服务
// 写操作: 加锁 -> 从存储刷新 -> 纯函数计算新快照 -> 按revision比较并交换保存
type AppServiceImpl struct {
	repo      AppStoreRepo
	writeLock AppStoreLock
	engine    *Engine
	catalog   *Catalog
	suggester Suggester

	namespace       string
	lockTTL         time.Duration
	maxSaveAttempts int

	// 最近一次看到的数据, 存储读失败的时候用它继续服务
	mu       sync.Mutex
	apps     []*Application
	revision int64
	dirty    bool // 有修改还没有保存成功
}

type AppServiceOption func(*AppServiceImpl)

// WithNamespace 存储里的key, 不同namespace的数据互相隔离
func WithNamespace(namespace string) AppServiceOption {
	return func(s *AppServiceImpl) {
		s.namespace = namespace
	}
}

func WithCatalog(catalog *Catalog) AppServiceOption {
	return func(s *AppServiceImpl) {
		s.catalog = catalog
	}
}

func WithEngine(engine *Engine) AppServiceOption {
	return func(s *AppServiceImpl) {
		s.engine = engine
	}
}

// WithSuggester 模块建议服务, 不设置时SuggestModules总是返回空列表
func WithSuggester(suggester Suggester) AppServiceOption {
	return func(s *AppServiceImpl) {
		s.suggester = suggester
	}
}

// WithMaxSaveAttempts 保存遇到revision冲突时最多尝试几次
func WithMaxSaveAttempts(attempts int) AppServiceOption {
	return func(s *AppServiceImpl) {
		if attempts > 0 {
			s.maxSaveAttempts = attempts
		}
	}
}

func WithLockTTL(ttl time.Duration) AppServiceOption {
	return func(s *AppServiceImpl) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// NewAppService writeLock为nil时用进程内的锁
func NewAppService(repo AppStoreRepo, writeLock AppStoreLock, opts ...AppServiceOption) AppService {
	return newAppServiceImpl(repo, writeLock, opts...)
}

func newAppServiceImpl(repo AppStoreRepo, writeLock AppStoreLock, opts ...AppServiceOption) *AppServiceImpl {
	if writeLock == nil {
		writeLock = NewLocalAppStoreLock()
	}
	s := &AppServiceImpl{
		repo:            repo,
		writeLock:       writeLock,
		engine:          NewEngine(),
		catalog:         NewCatalog(),
		namespace:       DefaultNamespace,
		lockTTL:         DefaultLockTTL,
		maxSaveAttempts: DefaultMaxSaveAttempts,
		apps:            make([]*Application, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func appStoreLockKey(namespace string) string {
	return fmt.Sprintf("ezyflow_store_write_%s", namespace)
}

// snapshot 从存储读最新数据
// 读失败用内存数据; 本地有没保存的修改并且存储没被别人改过, 也用内存数据
func (s *AppServiceImpl) snapshot(ctx context.Context) ([]*Application, int64) {
	blob, err := s.repo.Load(ctx, s.namespace)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		slog.ErrorContext(ctx, "load applications failed, serving cached", "namespace", s.namespace, "revision", s.revision, "err", err)
		return s.apps, s.revision
	}
	if s.dirty && blob.Revision == s.revision {
		return s.apps, s.revision
	}
	if s.dirty {
		slog.WarnContext(ctx, "unsaved changes dropped, store was written by another writer",
			"namespace", s.namespace, "cachedRevision", s.revision, "storeRevision", blob.Revision)
	}
	s.apps = DecodeApplicationsOrEmpty(ctx, blob.Data)
	s.revision = blob.Revision
	s.dirty = false
	return s.apps, s.revision
}

func (s *AppServiceImpl) commit(apps []*Application, revision int64, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps = apps
	s.revision = revision
	s.dirty = dirty
}

// mutate 串行执行一次写操作, f必须是纯函数, 冲突重试时会再次调用
// revision冲突以外的保存失败只记日志, 数据留在内存里, 下次保存时一起写入
func (s *AppServiceImpl) mutate(ctx context.Context, op string, f func(apps []*Application) ([]*Application, error)) error {
	err := s.writeLock.NonBlockingSynchronized(ctx,
		appStoreLockKey(s.namespace),
		s.lockTTL,
		func(ctx context.Context) error {
			for attempt := 1; ; attempt++ {
				apps, revision := s.snapshot(ctx)
				next, err := f(apps)
				if err != nil {
					return err
				}
				data, err := EncodeApplications(next)
				if err != nil {
					return errors.WithMessagef(err, "%s failed, namespace: %s", op, s.namespace)
				}
				newRevision, err := s.repo.Save(ctx, s.namespace, data, revision)
				if err == nil {
					s.commit(next, newRevision, false)
					return nil
				}
				if errors.Is(err, ErrStoreRevisionConflict) {
					if attempt < s.maxSaveAttempts {
						slog.WarnContext(ctx, "save applications conflict, retrying", "op", op, "attempt", attempt, "err", err)
						continue
					}
					return errors.WithMessagef(err, "%s failed after %d attempts", op, attempt)
				}
				slog.ErrorContext(ctx, "save applications failed, kept in memory", "op", op, "namespace", s.namespace, "err", err)
				s.commit(next, revision, true)
				return nil
			}
		})
	if errors.Is(err, LockFailedError) {
		return errors.WithMessagef(err, "%s failed, namespace %s is being written", op, s.namespace)
	}
	return err
}

// updateApplication 修改单个应用, 返回修改后的应用
func (s *AppServiceImpl) updateApplication(ctx context.Context, op string, appID string, f func(app *Application) (*Application, error)) (*Application, error) {
	var updated *Application
	err := s.mutate(ctx, op, func(apps []*Application) ([]*Application, error) {
		app, _ := FindApplication(apps, appID)
		if app == nil {
			return nil, errors.WithMessagef(ErrApplicationNotFound, "%s failed, appID: %s", op, appID)
		}
		next, err := f(app)
		if err != nil {
			return nil, err
		}
		updated = next
		return SaveApplication(apps, next), nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *AppServiceImpl) ListApplications(ctx context.Context) ([]*Application, error) {
	apps, _ := s.snapshot(ctx)
	return CloneApplications(apps), nil
}

func (s *AppServiceImpl) ListPublishedApplications(ctx context.Context) ([]*Application, error) {
	apps, _ := s.snapshot(ctx)
	return CloneApplications(PublishedApplications(apps)), nil
}

func (s *AppServiceImpl) GetApplication(ctx context.Context, appID string) (*Application, error) {
	apps, _ := s.snapshot(ctx)
	app, _ := FindApplication(apps, appID)
	if app == nil {
		return nil, errors.WithMessagef(ErrApplicationNotFound, "GetApplication failed, appID: %s", appID)
	}
	return app.Clone(), nil
}

func (s *AppServiceImpl) ListModuleTemplates(ctx context.Context) []ModuleTemplate {
	return s.catalog.Templates()
}

func (s *AppServiceImpl) CreateApplication(ctx context.Context, req *CreateApplicationReq) (*Application, error) {
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "CreateApplication failed, req: %v,err: %v", req, err)
	}
	app, err := NewApplication("", req.Name, req.Department)
	if err != nil {
		return nil, errors.WithMessage(err, "CreateApplication failed")
	}
	err = s.mutate(ctx, "CreateApplication", func(apps []*Application) ([]*Application, error) {
		return SaveApplication(apps, app), nil
	})
	if err != nil {
		return nil, err
	}
	return app.Clone(), nil
}

func (s *AppServiceImpl) AddModule(ctx context.Context, req *AddModuleReq) (*Module, error) {
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "AddModule failed, req: %v,err: %v", req, err)
	}
	if !IsValidModuleKind(req.Kind) {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "AddModule failed, kind: %s", req.Kind)
	}
	module, err := s.catalog.NewModule(req.Kind)
	if err != nil {
		return nil, errors.WithMessage(err, "AddModule failed")
	}
	if req.Label != "" {
		module.Label = req.Label
	}
	if req.Description != "" {
		module.Description = req.Description
	}
	_, err = s.updateApplication(ctx, "AddModule", req.AppID, func(app *Application) (*Application, error) {
		return AppendModule(app, module)
	})
	if err != nil {
		return nil, err
	}
	return module.Clone(), nil
}

func (s *AppServiceImpl) UpdateModule(ctx context.Context, req *UpdateModuleReq) (*Module, error) {
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "UpdateModule failed, req: %v,err: %v", req, err)
	}
	patch := ModulePatch{Label: req.Label, Description: req.Description, Config: req.Config}
	app, err := s.updateApplication(ctx, "UpdateModule", req.AppID, func(app *Application) (*Application, error) {
		return UpdateModule(app, req.ModuleID, patch)
	})
	if err != nil {
		return nil, err
	}
	module, _ := app.FindModule(req.ModuleID)
	return module, nil
}

func (s *AppServiceImpl) DeleteModule(ctx context.Context, req *DeleteModuleReq) error {
	if err := validatorUtil.Struct(req); err != nil {
		return errors.Wrapf(ErrWorkflowParamInvalid, "DeleteModule failed, req: %v,err: %v", req, err)
	}
	app, err := s.updateApplication(ctx, "DeleteModule", req.AppID, func(app *Application) (*Application, error) {
		return DeleteModule(app, req.ModuleID)
	})
	if err != nil {
		return err
	}
	if dangling := DanglingRequests(app); len(dangling) > 0 {
		ids := make([]string, 0, len(dangling))
		for _, r := range dangling {
			ids = append(ids, r.ID)
		}
		slog.WarnContext(ctx, "module deleted while requests still point to it",
			"appID", req.AppID, "moduleID", req.ModuleID, "requests", strings.Join(ids, ","), "actor", req.ActorID)
	}
	return nil
}

func (s *AppServiceImpl) ToggleAccess(ctx context.Context, req *ToggleAccessReq) (*Application, error) {
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "ToggleAccess failed, req: %v,err: %v", req, err)
	}
	return s.updateApplication(ctx, "ToggleAccess", req.AppID, func(app *Application) (*Application, error) {
		return ToggleAccess(app, req.Role, req.UserID)
	})
}

func (s *AppServiceImpl) PublishApplication(ctx context.Context, req *PublishApplicationReq) (*Application, error) {
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "PublishApplication failed, req: %v,err: %v", req, err)
	}
	return s.updateApplication(ctx, "PublishApplication", req.AppID, func(app *Application) (*Application, error) {
		return Publish(app), nil
	})
}

func (s *AppServiceImpl) SubmitRequest(ctx context.Context, req *SubmitRequestReq) (*LiveRequest, error) {
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "SubmitRequest failed, req: %v,err: %v", req, err)
	}
	var created *LiveRequest
	_, err := s.updateApplication(ctx, "SubmitRequest", req.AppID, func(app *Application) (*Application, error) {
		if !app.IsPublished {
			return nil, errors.WithMessagef(ErrApplicationNotPublished, "SubmitRequest failed, appID: %s", app.ID)
		}
		if len(app.Modules) == 0 {
			return nil, errors.WithMessagef(ErrApplicationHasNoModules, "SubmitRequest failed, appID: %s", app.ID)
		}
		next, request, err := s.engine.Submit(app, req.Data, req.ActorID)
		if err != nil {
			return nil, err
		}
		created = request
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (s *AppServiceImpl) ActOnRequest(ctx context.Context, req *ActOnRequestReq) (*LiveRequest, error) {
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrWorkflowParamInvalid, "ActOnRequest failed, req: %v,err: %v", req, err)
	}
	var updated *LiveRequest
	_, err := s.updateApplication(ctx, "ActOnRequest", req.AppID, func(app *Application) (*Application, error) {
		request, _ := app.FindRequest(req.RequestID)
		if request == nil {
			return nil, errors.WithMessagef(ErrLiveRequestNotFound, "appID: %s, requestID: %s", app.ID, req.RequestID)
		}
		if request.IsOver() {
			return nil, errors.WithMessagef(ErrLiveRequestTerminal, "appID: %s, requestID: %s, status: %s", app.ID, req.RequestID, request.Status)
		}
		module := app.CurrentModule(request)
		if module == nil {
			return nil, errors.WithMessagef(ErrDanglingModuleReference, "appID: %s, requestID: %s, moduleID: %s", app.ID, req.RequestID, request.CurrentModuleID)
		}
		if !CanAct(module, req.ActorID) {
			return nil, errors.WithMessagef(ErrActorNotAssignee, "requestID: %s, moduleID: %s, actor: %s", req.RequestID, module.ID, req.ActorID)
		}
		if !IsActionAllowed(module, req.Action) {
			return nil, errors.WithMessagef(ErrActionNotAllowed, "requestID: %s, module kind: %s, action: %s", req.RequestID, module.Kind, req.Action)
		}
		next, request, err := s.engine.Transition(app, req.RequestID, req.Action, req.ActorID)
		if err != nil {
			return nil, err
		}
		updated = request
		return next, nil
	})
	if err != nil {
		if IsSeriousError(err) {
			slog.ErrorContext(ctx, "ActOnRequest failed", "appID", req.AppID, "requestID", req.RequestID, "err", err)
		}
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *AppServiceImpl) ListNotifications(ctx context.Context, userID string) ([]*Notification, error) {
	if userID == "" {
		return nil, errors.Wrap(ErrWorkflowParamInvalid, "ListNotifications failed, userID is empty")
	}
	apps, _ := s.snapshot(ctx)
	return PendingForUser(CloneApplications(apps), userID), nil
}

func (s *AppServiceImpl) GetStats(ctx context.Context) (*Stats, error) {
	apps, _ := s.snapshot(ctx)
	return ComputeStats(apps), nil
}

func (s *AppServiceImpl) GetRequestTimeline(ctx context.Context, appID string, requestID string) ([]TimelineEntry, error) {
	app, err := s.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	request, _ := app.FindRequest(requestID)
	if request == nil {
		return nil, errors.WithMessagef(ErrLiveRequestNotFound, "GetRequestTimeline failed, appID: %s, requestID: %s", appID, requestID)
	}
	return RequestTimeline(app, request), nil
}

func (s *AppServiceImpl) ClearAll(ctx context.Context, actorID string) error {
	if actorID == "" {
		return errors.Wrap(ErrWorkflowParamInvalid, "ClearAll failed, actorID is empty")
	}
	err := s.writeLock.NonBlockingSynchronized(ctx,
		appStoreLockKey(s.namespace),
		s.lockTTL,
		func(ctx context.Context) error {
			revision, err := s.repo.Delete(ctx, s.namespace)
			if err != nil {
				return errors.WithMessagef(err, "ClearAll failed, namespace: %s", s.namespace)
			}
			s.commit(make([]*Application, 0), revision, false)
			slog.WarnContext(ctx, "all applications cleared", "namespace", s.namespace, "actor", actorID)
			return nil
		})
	if errors.Is(err, LockFailedError) {
		return errors.WithMessagef(err, "ClearAll failed, namespace %s is being written", s.namespace)
	}
	return err
}

func (s *AppServiceImpl) SuggestModules(ctx context.Context, prompt string) ([]*Module, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.Wrap(ErrWorkflowParamInvalid, "SuggestModules failed, prompt is empty")
	}
	if s.suggester == nil {
		return make([]*Module, 0), nil
	}
	suggestions, err := s.suggester.Suggest(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "suggest modules failed", "err", err)
		return make([]*Module, 0), nil
	}
	return TranslateSuggestions(s.catalog, suggestions), nil
}
