package workflow

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validatorUtil = newValidator()

var telPattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{3,}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("tel", func(fl validator.FieldLevel) bool {
		return telPattern.MatchString(fl.Field().String())
	})
	return v
}

// 字段类型 -> validator的tag, text和select不在这里
var fieldKindTags = map[FieldKind]string{
	FieldKindNumber: "numeric",
	FieldKindDate:   "datetime=2006-01-02",
	FieldKindEmail:  "email",
	FieldKindTel:    "tel",
}

// FieldError 单个字段的校验失败
type FieldError struct {
	FieldID string `json:"fieldId"`
	Label   string `json:"label"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError 提交数据不符合start模块的表单定义, 每个有问题的字段一条
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrSubmissionInvalid.Error(), strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrSubmissionInvalid
}

// ValidateSubmission 按表单定义校验提交的数据, data的key是字段label
// 不在表单里的key不做处理
func ValidateSubmission(fields []FormField, data map[string]string) error {
	fieldErrors := make([]FieldError, 0)
	for _, field := range fields {
		value := strings.TrimSpace(data[field.Label])
		if value == "" {
			if field.Required {
				fieldErrors = append(fieldErrors, FieldError{
					FieldID: field.ID,
					Label:   field.Label,
					Code:    "required",
					Message: fmt.Sprintf("%s is required", field.Label),
				})
			}
			continue
		}
		if field.Kind == FieldKindSelect {
			if !slices.Contains(field.Options, value) {
				fieldErrors = append(fieldErrors, FieldError{
					FieldID: field.ID,
					Label:   field.Label,
					Code:    "oneof",
					Message: fmt.Sprintf("%s must be one of [%s]", field.Label, strings.Join(field.Options, ", ")),
				})
			}
			continue
		}
		tag, ok := fieldKindTags[field.Kind]
		if !ok {
			continue
		}
		if err := validatorUtil.Var(value, tag); err != nil {
			fieldErrors = append(fieldErrors, FieldError{
				FieldID: field.ID,
				Label:   field.Label,
				Code:    field.Kind,
				Message: fmt.Sprintf("%s is not a valid %s", field.Label, field.Kind),
			})
		}
	}
	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

type formFieldSchema struct {
	ID    string `validate:"required"`
	Label string `validate:"required"`
	Kind  string `validate:"oneof=text number date select email tel"`
}

// ValidateFormFields 检查表单定义本身: label唯一, select必须有选项
func ValidateFormFields(fields []FormField) error {
	labels := make(map[string]struct{})
	for i, field := range fields {
		if err := validatorUtil.Struct(&formFieldSchema{ID: field.ID, Label: field.Label, Kind: field.Kind}); err != nil {
			return errors.Wrapf(ErrWorkflowParamInvalid, "form field %d invalid, err: %v", i, err)
		}
		if _, ok := labels[field.Label]; ok {
			return errors.Wrapf(ErrWorkflowParamInvalid, "form field label duplicated: %s", field.Label)
		}
		labels[field.Label] = struct{}{}
		if field.Kind == FieldKindSelect && len(field.Options) == 0 {
			return errors.Wrapf(ErrWorkflowParamInvalid, "select field %s has no options", field.Label)
		}
		if field.Kind != FieldKindSelect && len(field.Options) > 0 {
			return errors.Wrapf(ErrWorkflowParamInvalid, "field %s of kind %s can not have options", field.Label, field.Kind)
		}
	}
	return nil
}

// ValidateModuleConfig 检查模块配置和模块类型是否一致, 以及各类型自己的约束
func ValidateModuleConfig(kind ModuleKind, cfg ModuleConfig) error {
	if cfg == nil {
		return nil
	}
	if cfg.Kind() != kind {
		return errors.Wrapf(ErrWorkflowParamInvalid, "config kind %s does not match module kind %s", cfg.Kind(), kind)
	}
	switch c := cfg.(type) {
	case *StartConfig:
		return ValidateFormFields(c.FormFields)
	case *ApprovalConfig:
		for _, opt := range c.ApprovalOptions {
			if err := validatorUtil.Var(opt, "oneof=approve reject send_back"); err != nil {
				return errors.Wrapf(ErrWorkflowParamInvalid, "approval option %q invalid", opt)
			}
		}
	case *NotificationConfig:
		if err := validatorUtil.Var(c.NotificationType, "oneof=in_app push"); err != nil {
			return errors.Wrapf(ErrWorkflowParamInvalid, "notification type %q invalid", c.NotificationType)
		}
	}
	return nil
}
