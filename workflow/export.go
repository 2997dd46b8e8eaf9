package workflow

import "context"

type AppService interface {
	/**
	 * @description: 查询所有应用, 包括未发布的
	 *               存储读取失败时返回内存里的最新数据, 不返回错误
	 * @param ctx context.Context
	 * @return []*Application, error
	 */
	ListApplications(ctx context.Context) ([]*Application, error)
	/**
	 * @description: 查询已发布的应用, 只有已发布的应用可以提交请求
	 * @param ctx context.Context
	 * @return []*Application, error
	 */
	ListPublishedApplications(ctx context.Context) ([]*Application, error)
	/**
	 * @description: 按id查询应用, 不存在返回ErrApplicationNotFound
	 * @param ctx context.Context
	 * @param appID string
	 * @return *Application, error
	 */
	GetApplication(ctx context.Context, appID string) (*Application, error)
	/**
	 * @description: 模块目录, 画布上可以添加的模块模板
	 * @param ctx context.Context
	 * @return []ModuleTemplate
	 */
	ListModuleTemplates(ctx context.Context) []ModuleTemplate
	/**
	 * @description: 新建应用, 新应用未发布, 没有模块
	 * @param ctx context.Context
	 * @param req *CreateApplicationReq
	 * @return *Application, error
	 */
	CreateApplication(ctx context.Context, req *CreateApplicationReq) (*Application, error)
	/**
	 * @description: 从目录实例化一个模块, 加到应用模块序列的末尾
	 * @param ctx context.Context
	 * @param req *AddModuleReq
	 *				  req.Label, req.Description 为空时用模板的默认值
	 * @return *Module, error
	 */
	AddModule(ctx context.Context, req *AddModuleReq) (*Module, error)
	/**
	 * @description: 按id替换模块, 模块类型不能修改
	 * @param ctx context.Context
	 * @param req *UpdateModuleReq
	 * @return *Module, error
	 */
	UpdateModule(ctx context.Context, req *UpdateModuleReq) (*Module, error)
	/**
	 * @description: 删除模块
	 *               指向该模块的进行中请求会变成悬空引用, 之后对它们的操作返回ErrDanglingModuleReference
	 * @param ctx context.Context
	 * @param req *DeleteModuleReq
	 * @return error
	 */
	DeleteModule(ctx context.Context, req *DeleteModuleReq) error
	/**
	 * @description: 切换用户在某个访问角色里的成员关系, 在就移除, 不在就加上
	 * @param ctx context.Context
	 * @param req *ToggleAccessReq
	 * @return *Application, error
	 */
	ToggleAccess(ctx context.Context, req *ToggleAccessReq) (*Application, error)
	/**
	 * @description: 发布应用
	 * @param ctx context.Context
	 * @param req *PublishApplicationReq
	 * @return *Application, error
	 */
	PublishApplication(ctx context.Context, req *PublishApplicationReq) (*Application, error)
	/**
	 * @description: 提交一个新请求
	 *               应用未发布返回ErrApplicationNotPublished, 没有模块返回ErrApplicationHasNoModules
	 *               表单校验失败返回*ValidationError(errors.Is ErrSubmissionInvalid)
	 * @param ctx context.Context
	 * @param req *SubmitRequestReq
	 * @return *LiveRequest, error
	 */
	SubmitRequest(ctx context.Context, req *SubmitRequestReq) (*LiveRequest, error)
	/**
	 * @description: 在请求的当前模块上执行动作
	 *               只有当前模块的处理人可以操作(ErrActorNotAssignee)
	 *               动作必须是当前模块允许的(ErrActionNotAllowed)
	 *               已结束的请求返回ErrLiveRequestTerminal, 当前模块被删除返回ErrDanglingModuleReference
	 * @param ctx context.Context
	 * @param req *ActOnRequestReq
	 * @return *LiveRequest, error
	 */
	ActOnRequest(ctx context.Context, req *ActOnRequestReq) (*LiveRequest, error)
	/**
	 * @description: 待用户处理的请求, 每次读都重新计算
	 * @param ctx context.Context
	 * @param userID string
	 * @return []*Notification, error
	 */
	ListNotifications(ctx context.Context, userID string) ([]*Notification, error)
	/**
	 * @description: 看板统计
	 * @param ctx context.Context
	 * @return *Stats, error
	 */
	GetStats(ctx context.Context) (*Stats, error)
	/**
	 * @description: 请求在每个模块上的进度
	 * @param ctx context.Context
	 * @param appID string
	 * @param requestID string
	 * @return []TimelineEntry, error
	 */
	GetRequestTimeline(ctx context.Context, appID string, requestID string) ([]TimelineEntry, error)
	/**
	 * @description: 清空所有应用和请求, 管理员操作, 不可恢复
	 * @param ctx context.Context
	 * @param actorID string
	 * @return error
	 */
	ClearAll(ctx context.Context, actorID string) error
	/**
	 * @description: 根据描述生成模块建议, 返回的模块还没有加到任何应用里
	 *               生成服务失败或者返回格式不对时返回空列表, 不返回错误
	 * @param ctx context.Context
	 * @param prompt string
	 * @return []*Module, error
	 */
	SuggestModules(ctx context.Context, prompt string) ([]*Module, error)
}

type CreateApplicationReq struct {
	Name       string `json:"name" validate:"required"`
	Department string `json:"department"`
	ActorID    string `json:"actor_id" validate:"required"`
}

type AddModuleReq struct {
	AppID       string     `json:"app_id" validate:"required"`
	Kind        ModuleKind `json:"kind" validate:"required"`
	Label       string     `json:"label"`       // 为空用模板的label
	Description string     `json:"description"` // 为空用模板的description
	ActorID     string     `json:"actor_id" validate:"required"`
}

type UpdateModuleReq struct {
	AppID       string       `json:"app_id" validate:"required"`
	ModuleID    string       `json:"module_id" validate:"required"`
	Label       *string      `json:"label"`
	Description *string      `json:"description"`
	Config      ModuleConfig `json:"-"` // nil表示不修改
	ActorID     string       `json:"actor_id" validate:"required"`
}

type DeleteModuleReq struct {
	AppID    string `json:"app_id" validate:"required"`
	ModuleID string `json:"module_id" validate:"required"`
	ActorID  string `json:"actor_id" validate:"required"`
}

type ToggleAccessReq struct {
	AppID   string     `json:"app_id" validate:"required"`
	Role    AccessRole `json:"role" validate:"oneof=owners managers members"`
	UserID  string     `json:"user_id" validate:"required"`
	ActorID string     `json:"actor_id" validate:"required"`
}

type PublishApplicationReq struct {
	AppID   string `json:"app_id" validate:"required"`
	ActorID string `json:"actor_id" validate:"required"`
}

type SubmitRequestReq struct {
	AppID   string            `json:"app_id" validate:"required"`
	Data    map[string]string `json:"data"` // key是表单字段的label
	ActorID string            `json:"actor_id" validate:"required"`
}

type ActOnRequestReq struct {
	AppID     string `json:"app_id" validate:"required"`
	RequestID string `json:"request_id" validate:"required"`
	Action    string `json:"action" validate:"oneof=APPROVED REJECTED COMPLETED"`
	ActorID   string `json:"actor_id" validate:"required"`
}
