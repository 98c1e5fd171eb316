// File: endpoint/invoke.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Invoke fills a compiled CallbackPlan's argument slots from the
// runtime context available at a particular dispatch point and calls
// the bound method via reflection (spec §4.3, §4.8).
package endpoint

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/uritemplate"
	"github.com/momentics/ws-endpoint/wserr"
)

// InvokeContext carries every value a callback's binding plan might
// draw from; a given dispatch point (open/close/error/message) only
// populates the slots relevant to it, and Invoke only consults the
// slots the plan actually asks for.
type InvokeContext struct {
	Session      api.Session
	Config       api.EndpointConfig
	CloseReason  api.CloseReason
	Err          error
	PathParams   uritemplate.PathParams
	MessageValue reflect.Value
	LastFragment bool
}

// Invoke calls handler (a pointer to the session's handler instance)
// through plan, recovering a panicking callback into a
// wserr.HandlerException rather than letting it unwind the dispatcher
// goroutine (spec §7).
func Invoke(plan *CallbackPlan, handler reflect.Value, ctx InvokeContext) (out []reflect.Value, err error) {
	args := make([]reflect.Value, len(plan.Args))
	for i, a := range plan.Args {
		v, berr := bindArg(a, ctx)
		if berr != nil {
			return nil, berr
		}
		args[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				rerr = fmt.Errorf("%v", r)
			}
			err = &wserr.HandlerException{Cause: rerr}
		}
	}()

	out = plan.Method.Func.Call(append([]reflect.Value{handler}, args...))
	return out, nil
}

func bindArg(a Arg, ctx InvokeContext) (reflect.Value, error) {
	switch a.Kind {
	case ArgSession:
		return reflect.ValueOf(ctx.Session), nil
	case ArgConfig:
		return reflect.ValueOf(ctx.Config), nil
	case ArgCloseReason:
		return reflect.ValueOf(ctx.CloseReason), nil
	case ArgThrowable:
		if ctx.Err == nil {
			return reflect.Zero(errorType), nil
		}
		return reflect.ValueOf(ctx.Err), nil
	case ArgPathParams:
		return bindPathParams(a, ctx.PathParams)
	case ArgMessage:
		if !ctx.MessageValue.IsValid() {
			return reflect.Zero(a.MessageType), nil
		}
		return ctx.MessageValue, nil
	case ArgPong:
		return ctx.MessageValue, nil
	case ArgLastFragment:
		return reflect.ValueOf(ctx.LastFragment), nil
	default:
		return reflect.Value{}, fmt.Errorf("endpoint: unhandled arg kind %d", a.Kind)
	}
}

// bindPathParams constructs a, and fills, a value of the carrier
// struct type from the string-valued path parameter map. A field whose
// template variable is absent is left at its zero value when the
// field's Go type is a pointer (the "boxed" form, spec §4.3's
// null-for-missing rule); a missing primitive (non-pointer) field is a
// binding failure, reported as a HandlerException so the connection
// stays OPEN.
func bindPathParams(a Arg, params uritemplate.PathParams) (reflect.Value, error) {
	sv := reflect.New(a.StructType).Elem()
	for _, f := range a.PathFields {
		raw, present := params[f.Name]
		field := sv.Field(f.FieldIndex)
		if !present {
			if field.Kind() == reflect.Ptr {
				continue
			}
			return reflect.Value{}, &wserr.HandlerException{
				Cause: fmt.Errorf("missing path parameter %q for non-pointer field", f.Name),
			}
		}
		if err := setPathField(field, raw); err != nil {
			return reflect.Value{}, &wserr.HandlerException{Cause: err}
		}
	}
	return sv, nil
}

func setPathField(field reflect.Value, raw string) error {
	target := field
	if field.Kind() == reflect.Ptr {
		target = reflect.New(field.Type().Elem()).Elem()
	}

	switch target.Kind() {
	case reflect.String:
		target.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("path parameter %q: %w", raw, err)
		}
		target.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("path parameter %q: %w", raw, err)
		}
		target.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("path parameter %q: %w", raw, err)
		}
		target.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("path parameter %q: %w", raw, err)
		}
		target.SetFloat(n)
	default:
		return fmt.Errorf("unsupported path parameter target kind %s", target.Kind())
	}

	if field.Kind() == reflect.Ptr {
		field.Set(target.Addr())
	}
	return nil
}
