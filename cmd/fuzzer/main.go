// Command fuzzer feeds random bodies behind a valid header to the loader and
// reports, minimized, any input that makes it panic instead of failing.
package main

import (
	crand "crypto/rand"
	"encoding/hex"
	"flag"
	mrand "math/rand"

	"github.com/dgryski/go-ddmin"
	"go.uber.org/zap"

	"github.com/mrbmarshal/marshal"
	"github.com/mrbmarshal/marshal/host"
)

func panics(dec *marshal.Decoder, doc []byte) (p bool) {
	defer func() {
		if r := recover(); r != nil {
			p = true
		}
	}()
	_, _ = dec.Load(doc)
	return false
}

func main() {
	n := flag.Int("n", 0, "number of documents to try, 0 runs forever")
	maxLen := flag.Int("len", 200, "maximum body length")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	decoder := &marshal.Decoder{Host: &host.Registry{AutoDefine: true}}

	var failures int
	for i := 0; *n == 0 || i < *n; i++ {
		l := mrand.Intn(*maxLen + 1)
		doc := make([]byte, 2+l)
		doc[0], doc[1] = marshal.MajorVersion, marshal.MinorVersion
		crand.Read(doc[2:])

		if !panics(decoder, doc) {
			continue
		}

		failures++
		minimized := ddmin.Minimize(doc, func(d []byte) ddmin.Result {
			if panics(decoder, d) {
				return ddmin.Fail
			}
			return ddmin.Pass
		})
		logger.Error("load panicked",
			zap.String("doc", hex.EncodeToString(doc)),
			zap.String("minimized", hex.EncodeToString(minimized)))
	}

	logger.Info("done", zap.Int("tried", *n), zap.Int("failures", failures))
}
