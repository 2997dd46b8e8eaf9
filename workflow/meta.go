package workflow

import "github.com/pkg/errors"

var (
	ErrApplicationNotFound     = errors.New("application not found")
	ErrModuleNotFound          = errors.New("module not found")
	ErrLiveRequestNotFound     = errors.New("live request not found")
	ErrApplicationNotPublished = errors.New("application not published")
	ErrApplicationHasNoModules = errors.New("application has no modules")
	// ErrLiveRequestTerminal: 请求已经是终止状态(completed/rejected),不能再流转
	ErrLiveRequestTerminal = errors.New("live request is terminal")
	// ErrDanglingModuleReference: 请求的currentModuleId在应用的模块序列中找不到
	// 场景: 有进行中的请求时删除了模块, 这时候不能猜测下一个节点, 直接拒绝本次操作
	ErrDanglingModuleReference = errors.New("dangling module reference")
	ErrActorNotAssignee        = errors.New("actor is not the assignee of current module")
	ErrActionNotAllowed        = errors.New("action not allowed at current module")
	ErrSubmissionInvalid       = errors.New("submission invalid")
	ErrWorkflowParamInvalid    = errors.New("workflow param invalid")
	ErrModuleKindUnknown       = errors.New("module kind unknown")
	// ErrStoreRevisionConflict: 保存时存储中的revision已经被其他写者推进了
	ErrStoreRevisionConflict = errors.New("store revision conflict")
)

// ModuleKind 模块类型
type ModuleKind string

const (
	ModuleKindStart        ModuleKind = "start"
	ModuleKindUserTask     ModuleKind = "user_task"
	ModuleKindApproval     ModuleKind = "approval"
	ModuleKindNotification ModuleKind = "notification"
	ModuleKindIntegration  ModuleKind = "integration"
	ModuleKindEnd          ModuleKind = "end"
)

// AllModuleKinds 画布上可以拖拽的模块类型, 顺序就是目录的展示顺序
var AllModuleKinds = []ModuleKind{
	ModuleKindStart,
	ModuleKindUserTask,
	ModuleKindApproval,
	ModuleKindNotification,
	ModuleKindIntegration,
	ModuleKindEnd,
}

func IsValidModuleKind(kind ModuleKind) bool {
	for _, k := range AllModuleKinds {
		if k == kind {
			return true
		}
	}
	return false
}

type RequestStatus = string

const (
	RequestStatusPending RequestStatus = "pending"
	// approved 保留在数据模型里,引擎目前不会产生这个状态
	RequestStatusApproved RequestStatus = "approved"
	// 终止状态, 不能再流转
	RequestStatusRejected RequestStatus = "rejected"
	// 终止状态, 不能再流转, 到达最后一个模块就是completed
	RequestStatusCompleted RequestStatus = "completed"
)

func IsOverRequestStatus(status RequestStatus) bool {
	return status == RequestStatusRejected || status == RequestStatusCompleted
}

func GetRequestStatusText(status RequestStatus) string {
	switch status {
	case RequestStatusPending:
		return "处理中"
	case RequestStatusApproved:
		return "已批准"
	case RequestStatusRejected:
		return "已驳回"
	case RequestStatusCompleted:
		return "完成"
	}
	return "未知"
}

// 动作, 写入history的action字段
const (
	ActionSubmitted = "SUBMITTED"
	ActionApproved  = "APPROVED"
	ActionRejected  = "REJECTED"
	ActionCompleted = "COMPLETED"
)

type FieldKind = string

const (
	FieldKindText   FieldKind = "text"
	FieldKindNumber FieldKind = "number"
	FieldKindDate   FieldKind = "date"
	FieldKindSelect FieldKind = "select"
	FieldKindEmail  FieldKind = "email"
	FieldKindTel    FieldKind = "tel"
)

type ApprovalOption = string

const (
	ApprovalOptionApprove  ApprovalOption = "approve"
	ApprovalOptionReject   ApprovalOption = "reject"
	ApprovalOptionSendBack ApprovalOption = "send_back"
)

type NotificationType = string

const (
	NotificationTypeInApp NotificationType = "in_app"
	NotificationTypePush  NotificationType = "push"
)

// AccessRole 应用的访问角色
type AccessRole = string

const (
	AccessRoleOwners   AccessRole = "owners"
	AccessRoleManagers AccessRole = "managers"
	AccessRoleMembers  AccessRole = "members"
)

// IsSeriousError 判断是否是严重错误
// 严重错误: 数据本身出了问题,需要人工介入, 比如模块被删了但是还有请求指向它
// 非严重错误: 用户操作被拒绝, 比如不是处理人、表单没填、请求已经结束
func IsSeriousError(err error) bool {
	if err == nil {
		return false
	}
	causeErr := errors.Cause(err)
	if errors.Is(causeErr, ErrDanglingModuleReference) ||
		errors.Is(causeErr, ErrModuleKindUnknown) ||
		errors.Is(causeErr, ErrStoreRevisionConflict) {
		return true
	}
	return false
}
