// Command mrbdump prints marshal dumps and snapshots, and can merge several
// dumps into one or wrap a dump into a compressed snapshot.
//
//	mrbdump file...                    print each value
//	mrbdump -o out.bin a.bin b.bin     merge into one array dump
//	mrbdump -o out.mrbs -compress zstd a.bin
package main

import (
	"flag"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/mrbmarshal/marshal"
	"github.com/mrbmarshal/marshal/host"
	"github.com/mrbmarshal/marshal/snapshot"
)

type options struct {
	out      string
	merge    bool
	compress string
	binary   bool
	verbose  bool
}

func parseFlags(args []string) (options, []string) {
	fs := flag.NewFlagSet("mrbdump", flag.ExitOnError)
	var opts options
	fs.StringVar(&opts.out, "o", "", "write the result to `file` instead of printing")
	fs.BoolVar(&opts.merge, "merge", false, "merge inputs into one array dump even if there is only one")
	fs.StringVar(&opts.compress, "compress", "", "wrap the output in a snapshot compressed with `kind` (none, snappy, zstd, zlib)")
	fs.BoolVar(&opts.binary, "binary", false, "print strings as byte slices")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	_ = fs.Parse(args)
	return opts, fs.Args()
}

type input struct {
	name string
	dump []byte
}

func readInputs(args []string) ([]input, error) {
	if len(args) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "reading stdin")
		}
		return unwrap("stdin", b)
	}

	var inputs []input
	for _, arg := range args {
		b, err := os.ReadFile(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", arg)
		}
		in, err := unwrap(arg, b)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in...)
	}
	return inputs, nil
}

// unwrap returns the dump held by b, which may be a snapshot.
func unwrap(name string, b []byte) ([]input, error) {
	if !snapshot.IsSnapshot(b) {
		return []input{{name, b}}, nil
	}
	dump, err := snapshot.Decode(b, snapshot.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "unwrapping %s", name)
	}
	return []input{{name, dump}}, nil
}

func process(dec *marshal.Decoder, in input) error {
	v, err := dec.Load(in.dump)
	if err != nil {
		return errors.Wrapf(err, "loading %s", in.name)
	}
	spew.Dump(v)
	return nil
}

func run(logger *zap.Logger, opts options, inputs []input) error {
	if opts.out == "" {
		dec := &marshal.Decoder{Host: &host.Registry{AutoDefine: true}, Binary: opts.binary}
		for _, in := range inputs {
			logger.Debug("loading", zap.String("file", in.name), zap.Int("bytes", len(in.dump)))
			if err := process(dec, in); err != nil {
				return err
			}
		}
		return nil
	}

	out := inputs[0].dump
	if opts.merge || len(inputs) > 1 {
		m := marshal.NewMerger()
		for _, in := range inputs {
			if err := m.Append(in.dump); err != nil {
				return errors.Wrapf(err, "merging %s", in.name)
			}
		}
		out = m.Finish()
	}

	if opts.compress != "" {
		kind, err := snapshot.ParseKind(opts.compress)
		if err != nil {
			return err
		}
		c, err := snapshot.NewCompressor(kind)
		if err != nil {
			return err
		}
		out, err = snapshot.Encode(out, snapshot.Options{Compression: c})
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(opts.out, out, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", opts.out)
	}

	logger.Info("wrote dump",
		zap.String("file", opts.out),
		zap.Int("inputs", len(inputs)),
		zap.Int("bytes", len(out)))
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	opts, args := parseFlags(os.Args[1:])

	logger := newLogger(opts.verbose)
	defer logger.Sync()

	inputs, err := readInputs(args)
	if err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}

	if err := run(logger, opts, inputs); err != nil {
		logger.Fatal("mrbdump failed", zap.Error(err))
	}
}
