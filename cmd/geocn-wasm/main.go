// Command geocn-wasm exposes the embedded GeoCN dataset to a JavaScript host.
//
// Build with:
//
//	GOOS=js GOARCH=wasm go build -o locutra.wasm ./cmd/geocn-wasm
//
// Once the module is running, the host reads the dataset with
// wasmHelpers.get_geo_data(), which returns the decompressed GeoJSON text.
package main

import (
	"os"

	glog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// exportName is the property set on the wasmHelpers global.
const exportName = "get_geo_data"

func main() {
	logger := glog.NewLogfmtLogger(glog.NewSyncWriter(os.Stderr))
	logger = glog.With(logger, "component", "geocn-wasm")

	if err := serve(logger); err != nil {
		level.Error(logger).Log("msg", "cannot serve dataset", "err", err)
		os.Exit(1)
	}
}
