//go:build !(js && wasm)

package main

import (
	"errors"

	glog "github.com/go-kit/log"
)

var errNoJSHost = errors.New("no JavaScript host: build with GOOS=js GOARCH=wasm")

func serve(glog.Logger) error {
	return errNoJSHost
}
