package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/notigate/pkg/worker"
)

// Opts with all CLI options. The worker talks line-delimited JSON on stdio,
// so every diagnostic goes to stderr.
type Opts struct {
	Endpoint    string        `long:"endpoint" env:"ENDPOINT" default:"http://127.0.0.1:8080/v1" description:"OpenAI-compatible inference endpoint"`
	APIKey      string        `long:"api-key" env:"API_KEY" description:"api key for the inference endpoint"`
	Temperature float64       `long:"temperature" env:"TEMPERATURE" default:"0.3" description:"generation temperature"`
	MaxTokens   int           `long:"max-tokens" env:"MAX_TOKENS" default:"500" description:"max tokens per response"`
	Timeout     time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"per-request timeout"`

	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Fprintf(os.Stderr, "Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug)
	log.Printf("[INFO] starting notigate-worker version %s, endpoint %s", revision, opts.Endpoint)

	backend := worker.NewOpenAIBackend(worker.OpenAIConfig{
		Endpoint:    opts.Endpoint,
		APIKey:      opts.APIKey,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Timeout:     opts.Timeout,
	})

	// stdin EOF means the parent died or asked us to quit
	if err := worker.Serve(os.Stdin, os.Stdout, backend); err != nil {
		log.Printf("[ERROR] worker failed: %v", err)
		os.Exit(1)
	}
	log.Printf("[INFO] worker finished")
}

// setupLog routes everything to stderr, stdout carries the RPC stream only
func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Out(os.Stderr), lgr.Err(os.Stderr), lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = append(logOpts, lgr.Debug)
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
