// Package optimize wires components D through J into the single
// top-level entry point the rest of this module exists to support: run
// the algebraic passes, assign every layer to a backend, let each
// backend rewrite its own subgraphs, then plan and materialize the
// tensor-handle strategy for every edge.
package optimize

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/graphc/assign"
	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/compat"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/driver"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
	"github.com/katalvlaran/graphc/metrics"
	"github.com/katalvlaran/graphc/pass"
	"github.com/katalvlaran/graphc/passlib"
	"github.com/katalvlaran/graphc/strategy"
)

// Options is the recognized set of knobs Run consults, per spec.md §6.
type Options struct {
	// ReduceFloat32ToFloat16 enables the attempt-assignment subroutine's
	// float16-repair detour.
	ReduceFloat32ToFloat16 bool `yaml:"reduceFloat32ToFloat16"`

	// ReduceFloat32ToBfloat16 is reserved and always rejected at entry;
	// callers wanting bfloat16 reduction must use a backend-specific
	// option instead.
	ReduceFloat32ToBfloat16 bool `yaml:"reduceFloat32ToBfloat16"`

	// ShapeInferenceMethod selects ValidateOnly or InferAndValidate for
	// every InferTensorInfos call Run makes.
	ShapeInferenceMethod graph.InferMethod `yaml:"shapeInferenceMethod"`

	ImportEnabled bool `yaml:"importEnabled"`
	ExportEnabled bool `yaml:"exportEnabled"`

	// Debug inserts a debug tap after every layer once the pipeline has
	// finished; DebugToFile additionally routes each tap to a file sink
	// under DebugDir (creation failure there is a warning, not fatal).
	Debug       bool   `yaml:"debug"`
	DebugToFile bool   `yaml:"debugToFile"`
	DebugDir    string `yaml:"debugDir"`

	AllowExpandedDims bool `yaml:"allowExpandedDims"`
	ProfilingEnabled  bool `yaml:"profilingEnabled"`

	// PerBackendOpaque is forwarded verbatim to each backend's
	// OptimizeSubgraph call, keyed by backend id.
	PerBackendOpaque map[string]map[string]any `yaml:"perBackendOpaque"`
}

// Result is what the caller gets back from a successful Run: the graph,
// now fully annotated, plus the model-wide options the spec says ride
// along on the optimized network (the "Global" import/export bag).
type Result struct {
	Graph           *graph.Graph
	ImportEnabled   bool
	ExportEnabled   bool
	CompileDuration time.Duration
}

// LoadOptionsYAML reads an Options value from YAML, for callers that
// keep compiler flags in a config file rather than wiring them by hand.
func LoadOptionsYAML(data []byte) (Options, error) {
	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Options{}, fmt.Errorf("%w: decoding options yaml: %v", graph.ErrInvalidArgument, err)
	}
	return o, nil
}

// Run executes the full D→D→F→D→H→I→J pipeline over g in place and
// returns the annotated result, a diagnostic sink recording every
// warning and failure along the way, and an error if the pipeline had
// to abort.
func Run(
	g *graph.Graph,
	preferred []string,
	supported map[string]bool,
	backends *backend.Registry,
	factories *handle.Registry,
	hints assign.Hints,
	opts Options,
	logger *zap.Logger,
) (Result, *diag.Sink, error) {
	start := time.Now()
	sink := diag.NewSink(logger)
	recorder := metrics.NewRecorder(opts.ProfilingEnabled)
	defer recorder.ObserveCompile(start)

	if opts.ReduceFloat32ToBfloat16 {
		err := fmt.Errorf("%w: bfloat16 reduction is not supported; use a backend-specific option instead", graph.ErrInvalidArgument)
		sink.Fail(diag.KindInvalidArgument, "", "", err)
		return Result{}, sink, err
	}
	if len(preferred) == 0 {
		err := fmt.Errorf("%w: backend preference list is empty", graph.ErrInvalidArgument)
		sink.Fail(diag.KindInvalidArgument, "", "", err)
		return Result{}, sink, err
	}

	onApply := func(passName string, _ graph.LayerRef, _ pass.Result) {
		recorder.PassApplied(passName)
	}

	// D, first group: pre-assignment algebraic passes — permute/reshape
	// manipulation, pad folding, space/depth recognition, and broadcast
	// insertion. None of these consult backend or type information, so
	// they run before anything else and drive every other structural
	// rewrite as far toward a fixed point as the graph allows on its
	// own.
	group1 := pass.NewManager([]pass.Pass{
		passlib.SquashSiblingPermutes{},
		passlib.RemoveInversePermutePair{},
		passlib.ConvertNoOpPermuteToReshape{},
		passlib.HoistPermuteAboveShapeAgnosticLayer{},
		passlib.SquashConsecutiveReshapes{},
		passlib.DropIdentityReshape{},
		passlib.FoldPadIntoConv{},
		passlib.RecognizePermuteBatchToSpaceAsDepthToSpace{},
		passlib.RecognizeTransposeBatchToSpaceAsDepthToSpace{},
		passlib.InsertBroadcastBeforeBinary{},
	}, pass.Options{OnApply: onApply})
	if err := group1.Run(g); err != nil {
		sink.Fail(diag.KindRuntime, "", "", err)
		return Result{}, sink, err
	}

	// D, second group: constant-layer normalization. This runs after
	// group 1 so that a permute the first group has already migrated up
	// to a constant's producer edge is the one this group folds into
	// the constant's stored data — running the groups in the other
	// order would miss permutes still downstream of other layers.
	group2 := pass.NewManager([]pass.Pass{
		passlib.FoldConstantDequantize{},
		passlib.FuseConstantPermute{},
	}, pass.Options{OnApply: onApply})
	if err := group2.Run(g); err != nil {
		sink.Fail(diag.KindRuntime, "", "", err)
		return Result{}, sink, err
	}

	if err := g.InferTensorInfos(opts.ShapeInferenceMethod); err != nil {
		sink.Fail(diag.KindLayerValidation, "", "", err)
		return Result{}, sink, err
	}

	// F: backend assignment.
	assignOpts := assign.Options{ReduceFloat32ToFloat16: opts.ReduceFloat32ToFloat16}
	if err := assign.Assign(g, backends, preferred, supported, map[string]bool{}, hints, assignOpts, sink); err != nil {
		return Result{}, sink, err
	}

	// D, inverse-conversion cleanup: the float16-repair detour inside F
	// may have left back-to-back float32->float16->float32 conversion
	// pairs on the layers it touched; this is the one pass named for
	// exactly that in spec.md's pass library.
	cleanup := pass.NewManager([]pass.Pass{
		passlib.RemoveRedundantCastPair{},
	}, pass.Options{OnApply: onApply})
	if err := cleanup.Run(g); err != nil {
		sink.Fail(diag.KindRuntime, "", "", err)
		return Result{}, sink, err
	}

	// H: backend subgraph optimization driver.
	driverOpts := driver.Options{
		Preferred: preferred,
		Supported: supported,
		Hints:     hints,
		Assign:    assignOpts,
		Model: backend.ModelOptions{
			ReduceFloat32ToFloat16: opts.ReduceFloat32ToFloat16,
			AllowExpandedDims:      opts.AllowExpandedDims,
		},
		PerBackendOpaque: opts.PerBackendOpaque,
	}
	if err := driver.Run(g, backends, driverOpts, sink); err != nil {
		return Result{}, sink, err
	}

	// I: edge-strategy planner.
	stratOpts := strategy.Options{ImportEnabled: opts.ImportEnabled, ExportEnabled: opts.ExportEnabled}
	if err := strategy.Plan(g, backends, factories, stratOpts, sink); err != nil {
		return Result{}, sink, err
	}

	// J: compatibility-layer inserter.
	if err := compat.Insert(g, backends, factories, sink); err != nil {
		return Result{}, sink, err
	}

	if opts.Debug {
		if opts.DebugToFile && opts.DebugDir != "" {
			if err := os.MkdirAll(opts.DebugDir, 0o755); err != nil {
				sink.Warn(diag.KindRuntime, "", "", "debug-to-file directory %s: %v", opts.DebugDir, err)
			}
		}
		tap := passlib.InsertDebugTaps{ToFile: opts.DebugToFile, Dir: opts.DebugDir}
		debugMgr := pass.NewManager([]pass.Pass{tap}, pass.Options{OnApply: onApply})
		if err := debugMgr.Run(g); err != nil {
			sink.Fail(diag.KindRuntime, "", "", err)
			return Result{}, sink, err
		}
	}

	return Result{
		Graph:           g,
		ImportEnabled:   opts.ImportEnabled,
		ExportEnabled:   opts.ExportEnabled,
		CompileDuration: time.Since(start),
	}, sink, nil
}
