// Command kgenc renders a micro-op sequence file to kernel source.
//
// Usage:
//
//	kgenc [options] <input.json>
//
// Examples:
//
//	kgenc kernel.json                  # render for OpenCL to stdout
//	kgenc -target metal kernel.json    # render MSL
//	kgenc -o kernel.cu -target cuda kernel.json
//
// The input file is a JSON description of the sequence; see schema.go.
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/gogpu/kgen"
)

var (
	target   = flag.String("target", "opencl", "output language (opencl, metal, cuda, hip, wgsl)")
	name     = flag.String("name", "", "kernel name (default: name from the input file)")
	output   = flag.String("o", "", "output file (default: stdout)")
	validate = flag.Bool("validate", true, "validate the sequence before rendering")
	version  = flag.Bool("version", false, "print version")
)

const kgenVersion = "0.1.0-dev"

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("kgenc version %s\n", kgenVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	seq, err := decodeSequence(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding sequence: %v\n", err)
		os.Exit(1)
	}

	t, err := kgen.ParseTarget(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	kernelName := seq.Name
	if *name != "" {
		kernelName = *name
	}
	if kernelName == "" {
		kernelName = "kernel"
	}

	opts := kgen.DefaultOptions()
	opts.Validate = *validate
	prog, err := kgen.RenderWithOptions(t, kernelName, seq.Ops, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render error: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(prog.Source), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Println(prog.Source)
	}

	for _, buf := range prog.Buffers {
		fmt.Fprintf(os.Stderr, "buffer %s: %s\n", buf.Name, buf.DType)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `kgenc - micro-op kernel source generator

Usage:
  kgenc [options] <input.json>

Options:
`)
	flag.PrintDefaults()
}
