//go:build !(js && wasm)

package main

import (
	"errors"
	"testing"

	glog "github.com/go-kit/log"
)

func TestServe_RequiresJSHost(t *testing.T) {
	err := serve(glog.NewNopLogger())
	if !errors.Is(err, errNoJSHost) {
		t.Fatalf("serve() error = %v, want %v", err, errNoJSHost)
	}
}
