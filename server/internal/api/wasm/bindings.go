//go:build js && wasm
// +build js,wasm

// Package wasm exposes the demo to JavaScript as EcbDemo.run.
package wasm

import (
	"context"
	"fmt"
	"syscall/js"

	"EcbBreaker/server/internal/pkg/helpers"
	"EcbBreaker/server/internal/services/demo"
)

// errorObject builds {error: msg}.
func errorObject(msg string) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("error", msg)
	return obj
}

func toUint8Array(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

// bytesArg reads a Uint8Array, or a string decoded by fromString.
func bytesArg(v js.Value, fromString func(string) ([]byte, error)) ([]byte, error) {
	switch {
	case v.IsUndefined() || v.IsNull():
		return nil, nil
	case v.Type() == js.TypeString:
		return fromString(v.String())
	case v.InstanceOf(js.Global().Get("Uint8Array")):
		b := make([]byte, v.Get("length").Int())
		js.CopyBytesToGo(b, v)
		return b, nil
	default:
		return nil, fmt.Errorf("expected Uint8Array or string, got %s", v.Type())
	}
}

func hexKey(s string) ([]byte, error) {
	return helpers.DecodeHex("key", s)
}

func rawString(s string) ([]byte, error) {
	return []byte(s), nil
}

func optionString(opts js.Value, name string) string {
	if opts.Type() != js.TypeObject {
		return ""
	}
	v := opts.Get(name)
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func newRun(svc *demo.Service) js.Func {
	// EcbDemo.run(key, attackerInput, unknown[, {algorithm, mode, padding}])
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 3 {
			return errorObject("insufficient args: run(key, attackerInput, unknown)")
		}

		key, err := bytesArg(args[0], hexKey)
		if err != nil {
			return errorObject(err.Error())
		}
		attackerInput, err := bytesArg(args[1], rawString)
		if err != nil {
			return errorObject(err.Error())
		}
		unknown, err := bytesArg(args[2], rawString)
		if err != nil {
			return errorObject(err.Error())
		}
		if len(unknown) > helpers.MaxUnknownLength || len(attackerInput) > helpers.MaxAttackerInputLength {
			return errorObject(helpers.ErrRequestTooLarge.Error())
		}

		var opts js.Value
		if len(args) > 3 {
			opts = args[3]
		}

		res, err := svc.Run(context.Background(), demo.Request{
			Key:           key,
			AttackerInput: attackerInput,
			Unknown:       unknown,
			Algorithm:     optionString(opts, "algorithm"),
			Mode:          optionString(opts, "mode"),
			Padding:       optionString(opts, "padding"),
		})
		if err != nil {
			return errorObject(err.Error())
		}

		steps := make([]interface{}, len(res.Steps))
		for i, s := range res.Steps {
			steps[i] = s
		}

		result := js.Global().Get("Object").New()
		result.Set("ciphertext", toUint8Array(res.Ciphertext))
		result.Set("recovered", toUint8Array(res.Recovered))
		result.Set("steps", js.ValueOf(steps))
		result.Set("complete", res.Complete)
		result.Set("runId", res.RunID)
		return result
	})
}

// Register installs EcbDemo.run on the global object. Runs are serial: the
// callback blocks the JS event loop until the recovery finishes.
func Register() {
	svc := demo.NewService(nil, demo.Options{Workers: 1})

	obj := js.Global().Get("EcbDemo")
	if obj.Type() == js.TypeUndefined {
		obj = js.Global().Get("Object").New()
		js.Global().Set("EcbDemo", obj)
	}
	obj.Set("run", newRun(svc))
}
