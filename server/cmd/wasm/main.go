//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"syscall/js"

	"EcbBreaker/server/internal/api/wasm"
)

func main() {
	fmt.Println("WASM ECB demo module initialized")

	wasm.Register()

	// Export a ready flag to signal that WASM is ready
	js.Global().Set("WasmReady", js.ValueOf(true))
	fmt.Println("WASM module ready: WasmReady = true")

	// Keep the program running indefinitely
	// This is required for Go WASM programs
	<-make(chan struct{})
}
