//go:build js && wasm

package main

import (
	"syscall/js"

	glog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/locutra/geocn"
)

// serve registers wasmHelpers.get_geo_data and blocks so the function stays
// callable for the lifetime of the page.
func serve(logger glog.Logger) error {
	register(js.Global())

	level.Info(logger).Log(
		"msg", "dataset export registered",
		"export", "wasmHelpers."+exportName,
		"payload_bytes", geocn.DefaultProvider().PayloadSize(),
	)
	select {}
}

// register sets get_geo_data on global.wasmHelpers, creating the object if the
// host has not. Other properties of an existing wasmHelpers are left alone.
func register(global js.Value) js.Func {
	helpers := global.Get("wasmHelpers")
	if helpers.IsUndefined() || helpers.IsNull() {
		helpers = global.Get("Object").New()
		global.Set("wasmHelpers", helpers)
	}

	// A corrupt payload panics here and takes the module down with it.
	getGeoData := js.FuncOf(func(js.Value, []js.Value) any {
		return geocn.GetGeoData()
	})
	helpers.Set(exportName, getGeoData)
	return getGeoData
}
