// thetasketch is a command line front end over the theta package. It builds
// one sketch per input file (one item per line) and reports the distinct
// count estimate, optionally combining the per-file sketches with a set
// operation and writing the resulting compact sketch to a file.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/distinctcount/thetasketch/theta"

	flag "github.com/opencoff/pflag"
)

func main() {
	var lgK uint
	var seed uint64
	var stdDevs uint
	var op string
	var out string

	usage := fmt.Sprintf("%s [options] FILE [FILE ...]", os.Args[0])

	flag.UintVarP(&lgK, "lg-k", "k", uint(theta.DefaultLgK), "log2 of nominal sketch size `K`")
	flag.Uint64VarP(&seed, "seed", "s", theta.DefaultSeed, "hash `seed` shared across inputs")
	flag.UintVarP(&stdDevs, "std-devs", "d", 2, "number of standard deviations for the error bound (1, 2 or 3)")
	flag.StringVarP(&op, "op", "o", "", "combine all inputs with a set `operation`: union, intersection or anotb")
	flag.StringVarP(&out, "write", "w", "", "write the combined compact sketch to `FILE`")
	flag.Usage = func() {
		fmt.Printf("thetasketch - estimate distinct counts with the Theta sketch\nUsage: %s\n", usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		die("no input files given\nUsage: %s", usage)
	}

	sketches := make([]*theta.QuickSelectUpdateSketch, 0, len(args))
	for _, path := range args {
		sketch, err := sketchFromFile(path, uint8(lgK), seed)
		if err != nil {
			die("%s: %s", path, err)
		}
		sketches = append(sketches, sketch)
		report(path, sketch, uint8(stdDevs))
	}

	if op == "" {
		return
	}

	result, err := combine(op, sketches, seed)
	if err != nil {
		die("%s: %s", op, err)
	}
	report(op, result, uint8(stdDevs))

	if out != "" {
		if err := writeSketch(out, result); err != nil {
			die("%s: %s", out, err)
		}
	}
}

func sketchFromFile(path string, lgK uint8, seed uint64) (*theta.QuickSelectUpdateSketch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sketch, err := theta.NewQuickSelectUpdateSketch(
		theta.WithUpdateSketchLgK(lgK),
		theta.WithUpdateSketchSeed(seed),
	)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := sketch.UpdateString(scanner.Text()); err != nil {
			return nil, err
		}
	}
	return sketch, scanner.Err()
}

func combine(op string, sketches []*theta.QuickSelectUpdateSketch, seed uint64) (theta.Estimator, error) {
	switch op {
	case "union":
		u, err := theta.NewUnion(theta.WithUnionSeed(seed))
		if err != nil {
			return nil, err
		}
		for _, s := range sketches {
			if err := u.Update(s); err != nil {
				return nil, err
			}
		}
		return u.OrderedResult()

	case "intersection":
		i := theta.NewIntersection(theta.WithIntersectionSeed(seed))
		for _, s := range sketches {
			if err := i.Update(s); err != nil {
				return nil, err
			}
		}
		return i.OrderedResult()

	case "anotb":
		if len(sketches) != 2 {
			return nil, fmt.Errorf("anotb requires exactly 2 inputs, got %d", len(sketches))
		}
		return theta.ANotB(sketches[0], sketches[1], seed, true)

	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func writeSketch(path string, s theta.Estimator) error {
	compact, ok := s.(*theta.CompactSketch)
	if !ok {
		compact = theta.NewCompactSketch(s, true)
	}
	data, err := compact.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func report(label string, s theta.Estimator, stdDevs uint8) {
	lb, err := s.LowerBound(stdDevs)
	if err != nil {
		die("%s: %s", label, err)
	}
	ub, err := s.UpperBound(stdDevs)
	if err != nil {
		die("%s: %s", label, err)
	}
	fmt.Printf("%-24s estimate=%.0f  [%.0f, %.0f]  retained=%d\n", label, s.Estimate(), lb, ub, s.NumRetained())
}

func die(f string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", os.Args[0], fmt.Sprintf(f, v...))
	os.Exit(1)
}
