// internal/actions/registry.go
//
// Action name → handler dispatch.
//
// Context
// -------
// The HTTP layer receives `{action, data}` envelopes.  Registry maps the
// action name to a typed handler, decodes `data` into that handler's payload
// struct, validates it with go-playground/validator, and only then runs it.
// Malformed input never reaches the repository.
//
// Notes
// -----
// • A Registry is an ordinary value built by the caller; there is no
//   package-level registration.
// • Field names in validation details are the payload's JSON names.
package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/logger"
	"github.com/yanizio/sitebuilder/internal/metrics"
)

// Action names.
const (
	ActionUpdatePage    = "UPDATE_PAGE"
	ActionDeletePage    = "DELETE_PAGE"
	ActionPublishPage   = "PUBLISH_PAGE"
	ActionUnpublishPage = "UNPUBLISH_PAGE"
	ActionCreatePage    = "CREATE_PAGE"
	ActionLockPage      = "LOCK_PAGE"
	ActionGetPagesTree  = "GET_PAGES_TREE"
)

type handlerFunc func(ctx context.Context, c Context, data json.RawMessage) (any, error)

// Registry dispatches named actions.
type Registry struct {
	handlers map[string]handlerFunc
	validate *validator.Validate
}

// NewRegistry returns a Registry with every built-in action of svc.
func NewRegistry(svc *Service) *Registry {
	r := &Registry{
		handlers: make(map[string]handlerFunc),
		validate: newValidator(),
	}
	register(r, ActionUpdatePage, svc.UpdatePage)
	register(r, ActionDeletePage, svc.DeletePage)
	register(r, ActionPublishPage, svc.PublishPages)
	register(r, ActionUnpublishPage, svc.UnpublishPages)
	register(r, ActionCreatePage, svc.CreatePage)
	register(r, ActionLockPage, svc.LockPage)
	register(r, ActionGetPagesTree, svc.GetPagesTree)
	return r
}

// register binds name to fn, decoding data into a fresh P per call.
func register[P any, R any](r *Registry, name string, fn func(context.Context, Context, P) (R, error)) {
	r.handlers[name] = func(ctx context.Context, c Context, data json.RawMessage) (any, error) {
		var payload P
		if len(bytes.TrimSpace(data)) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			if err := json.Unmarshal(data, &payload); err != nil {
				return nil, apperr.Validation("malformed payload: " + err.Error())
			}
		}
		if err := r.check(&payload); err != nil {
			return nil, err
		}
		return fn(ctx, c, payload)
	}
}

// Names lists the registered actions.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs action name with data on behalf of c.
func (r *Registry) Dispatch(ctx context.Context, c Context, name string, data json.RawMessage) (result any, err error) {
	start := time.Now()
	log := logger.FromContext(ctx).With(
		zap.String("action", name),
		zap.String("app", c.AppID),
		zap.String("user", c.UserID),
	)
	defer func() {
		code := "ok"
		if ae := apperr.As(err); ae != nil {
			code = ae.Code
		} else if err != nil {
			code = "INTERNAL"
		}
		metrics.ActionsTotal.WithLabelValues(name, code).Inc()
		metrics.ActionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		switch ae := apperr.As(err); {
		case err == nil:
			log.Debug("action done", zap.Duration("took", time.Since(start)))
		case ae != nil && ae.CallerError():
			log.Info("action refused", zap.String("code", ae.Code), zap.String("reason", ae.Message))
		default:
			log.Error("action failed", zap.String("code", code), zap.Error(err))
		}
	}()

	h, ok := r.handlers[name]
	if !ok {
		return nil, &apperr.Error{
			Code:    apperr.CodeUnknownAction,
			Message: "unknown action " + name,
			Kind:    apperr.KindValidation,
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return h(logger.WithContext(ctx, log), c, data)
}

//
// validation
//

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (r *Registry) check(payload any) error {
	if reflect.Indirect(reflect.ValueOf(payload)).Kind() != reflect.Struct {
		return nil
	}
	err := r.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	details := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		details = append(details, apperr.FieldError{Field: fe.Namespace()[strings.IndexByte(fe.Namespace(), '.')+1:], Message: msg})
	}
	return apperr.Validation("invalid payload", details...)
}
