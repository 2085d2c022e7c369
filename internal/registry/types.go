package registry

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agbru/optix/internal/collab"
	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/profiler"
)

// Exposed type names.
const (
	TypeSystemProfiler     = "SystemProfiler"
	TypeOptimizer          = "Optimizer"
	TypeOptimizationResult = "OptimizationResult"
	TypeDataLoader         = "DataLoader"
)

// Deps carries what the default constructors need.
type Deps struct {
	Logger   zerolog.Logger
	Profiler []profiler.Option
}

// DefaultTypes returns the four exposed types:
//
//	SystemProfiler()                       -> *profiler.SystemProfiler
//	Optimizer([name string])               -> collab.Optimizer
//	OptimizationResult()                   -> *collab.OptimizationResult
//	DataLoader(data [][]float32, batch int) -> collab.DataLoader
func DefaultTypes(deps Deps) []TypeSpec {
	return []TypeSpec{
		{Name: TypeSystemProfiler, New: func(args ...any) (any, error) {
			if len(args) != 0 {
				return nil, argCount(TypeSystemProfiler, 0, len(args))
			}
			return profiler.New(deps.Profiler...), nil
		}},
		{Name: TypeOptimizer, New: func(args ...any) (any, error) {
			var name string
			switch len(args) {
			case 0:
			case 1:
				s, ok := args[0].(string)
				if !ok {
					return nil, argType(TypeOptimizer, "name", "string", args[0])
				}
				name = s
			default:
				return nil, argCount(TypeOptimizer, 1, len(args))
			}
			return collab.Optimizer(collab.NewKernelOptimizer(name)), nil
		}},
		{Name: TypeOptimizationResult, New: func(args ...any) (any, error) {
			if len(args) != 0 {
				return nil, argCount(TypeOptimizationResult, 0, len(args))
			}
			return &collab.OptimizationResult{}, nil
		}},
		{Name: TypeDataLoader, New: func(args ...any) (any, error) {
			if len(args) != 2 {
				return nil, argCount(TypeDataLoader, 2, len(args))
			}
			data, ok := args[0].([][]float32)
			if !ok {
				return nil, argType(TypeDataLoader, "data", "[][]float32", args[0])
			}
			batch, ok := args[1].(int)
			if !ok {
				return nil, argType(TypeDataLoader, "batch", "int", args[1])
			}
			l, err := collab.NewSliceLoader(data, batch)
			if err != nil {
				return nil, err
			}
			return collab.DataLoader(l), nil
		}},
	}
}

// Init is the module entry point: it registers DefaultTypes on a new Module.
// A registration failure leaves no module at all.
func Init(deps Deps) (*Module, error) {
	m := NewModule(WithLogger(deps.Logger))
	if err := m.Register(DefaultTypes(deps)...); err != nil {
		return nil, err
	}
	deps.Logger.Debug().Strs("types", m.Types()).Msg("module initialized")
	return m, nil
}

func argCount(typ string, want, got int) error {
	return apperrors.ValidationError{Field: typ, Message: fmt.Sprintf("want %d arguments, got %d", want, got)}
}

func argType(typ, field, want string, got any) error {
	return apperrors.ValidationError{Field: typ + "." + field, Message: fmt.Sprintf("want %s, got %T", want, got)}
}
