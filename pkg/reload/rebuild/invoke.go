package rebuild

import (
	"errors"
	"fmt"
	"reflect"
)

// Invoke calls fn with args converted to its parameter types. A panic raised
// by the callee is returned as a *PanicError.
func Invoke(fn reflect.Value, args ...any) (out []reflect.Value, err error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, errors.New("not a function")
	}
	in, err := Arguments(fn.Type(), args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &PanicError{Value: r}
		}
	}()
	return fn.Call(in), nil
}

// Arguments converts args to the parameter types of ft. A reflect.Value
// argument is used as is. Numeric arguments convert between numeric kinds
// and named types convert to and from their underlying type.
func Arguments(ft reflect.Type, args []any) ([]reflect.Value, error) {
	n := ft.NumIn()
	variadic := ft.IsVariadic()
	if variadic && len(args) < n-1 {
		return nil, fmt.Errorf("want at least %d arguments, got %d", n-1, len(args))
	}
	if !variadic && len(args) != n {
		return nil, fmt.Errorf("want %d arguments, got %d", n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for idx, arg := range args {
		var want reflect.Type
		if variadic && idx >= n-1 {
			want = ft.In(n - 1).Elem()
		} else {
			want = ft.In(idx)
		}
		v, err := convert(arg, want)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", idx, err)
		}
		in[idx] = v
	}
	return in, nil
}

// Values unpacks call results.
func Values(out []reflect.Value) []any {
	values := make([]any, len(out))
	for idx, v := range out {
		if v.IsValid() && v.CanInterface() {
			values[idx] = v.Interface()
		}
	}
	return values
}

func convert(arg any, want reflect.Type) (reflect.Value, error) {
	v, ok := arg.(reflect.Value)
	if !ok {
		v = reflect.ValueOf(arg)
	}
	if !v.IsValid() {
		switch want.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", want)
	}

	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if convertible(v.Type(), want) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), want)
}

func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if from.Kind() == to.Kind() {
		return true
	}
	return numeric(from.Kind()) && numeric(to.Kind())
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
