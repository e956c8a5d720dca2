// Command update-payload regenerates the embedded GeoCN payload from a GeoJSON
// source file.
//
// Usage:
//
//	go run ./cmd/update-payload --source data/GeoCN.json
//
// This writes data/GeoCN.json.br and its digest data/GeoCN.json.sha256, after
// checking that the compressed payload decodes back to the source text.
package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	glog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/locutra/geocn"
)

// Config holds the command line options.
type Config struct {
	Source  string
	Out     string
	Quality int
}

func main() {
	var cfg Config

	app := kingpin.New("update-payload", "Compress a GeoJSON dataset into the embedded GeoCN payload.")
	app.Flag("source", "GeoJSON FeatureCollection to embed").Default("data/GeoCN.json").StringVar(&cfg.Source)
	app.Flag("out", "Brotli payload to write").Default("data/GeoCN.json.br").StringVar(&cfg.Out)
	app.Flag("quality", "Brotli quality (0-11)").Default("11").IntVar(&cfg.Quality)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := level.NewFilter(glog.NewLogfmtLogger(glog.NewSyncWriter(os.Stderr)), level.AllowInfo())
	logger = glog.With(logger, "ts", glog.DefaultTimestampUTC)

	if err := run(cfg, logger); err != nil {
		level.Error(logger).Log("msg", "payload update failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger glog.Logger) error {
	if !strings.HasSuffix(cfg.Out, ".br") {
		return fmt.Errorf("output %q must end in .br", cfg.Out)
	}

	text, err := os.ReadFile(cfg.Source)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	a, err := geocn.ParseAtlas(string(text))
	if err != nil {
		return fmt.Errorf("parsing source: %w", err)
	}
	level.Info(logger).Log("msg", "source parsed", "source", cfg.Source, "bytes", len(text), "regions", a.Len())

	payload, err := geocn.Compress(text, cfg.Quality)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(text)
	digest := hex.EncodeToString(sum[:])

	p := geocn.NewProvider(payload, geocn.WithDigest(digest))
	got, err := p.Text()
	if err != nil {
		return fmt.Errorf("round trip: %w", err)
	}
	if !bytes.Equal([]byte(got), text) {
		return errors.New("round trip: decoded text differs from source")
	}
	if err := geocn.ValidatePayload(p); err != nil {
		return fmt.Errorf("validating payload: %w", err)
	}

	digestPath := strings.TrimSuffix(cfg.Out, ".br") + ".sha256"
	if err := writePair(cfg.Out, payload, digestPath, []byte(digest)); err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "payload written",
		"out", cfg.Out,
		"digest", digest,
		"bytes", len(payload),
		"ratio", fmt.Sprintf("%.3f", float64(len(payload))/float64(max(len(text), 1))),
	)
	return nil
}

// writePair replaces the payload and its digest together. Both are staged as
// temp files next to their targets and only renamed into place once both are
// fully written, so a failed run leaves the previous pair untouched.
func writePair(payloadPath string, payload []byte, digestPath string, digest []byte) error {
	dir := filepath.Dir(payloadPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, target := range []string{payloadPath, digestPath} {
		if fi, err := os.Stat(target); err == nil && !fi.Mode().IsRegular() {
			return fmt.Errorf("%s exists and is not a regular file", target)
		}
	}

	payloadTmp, err := writeTemp(dir, filepath.Base(payloadPath), payload)
	if err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	defer os.Remove(payloadTmp)

	digestTmp, err := writeTemp(dir, filepath.Base(digestPath), digest)
	if err != nil {
		return fmt.Errorf("writing digest: %w", err)
	}
	defer os.Remove(digestTmp)

	if err := os.Rename(payloadTmp, payloadPath); err != nil {
		return fmt.Errorf("installing payload: %w", err)
	}
	if err := os.Rename(digestTmp, digestPath); err != nil {
		return fmt.Errorf("installing digest: %w", err)
	}
	return nil
}

func writeTemp(dir, base string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
