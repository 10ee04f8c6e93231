package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gridmdp/grid_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Params are the solver inputs for a single discount factor.
type Params struct {
	// Gamma is the discount factor, in (0,1].
	Gamma float64
	// Theta is the per-state change below which a sweep counts as converged.
	Theta float64
	// MaxIterations caps value-iteration sweeps, policy-evaluation sweeps, and
	// policy-iteration improvement passes.
	MaxIterations int

	// Q-learning only.
	Alpha           float64
	Epsilon         float64
	MaxEpisodes     int
	Tolerance       float64
	CheckInterval   int
	MaxEpisodeSteps int
}

// Hyperparameter defaults, used for keys absent from the config.
const (
	DEFAULT_THETA             = 1e-6
	DEFAULT_MAX_ITERATIONS    = 1000
	DEFAULT_ALPHA             = 0.1
	DEFAULT_EPSILON           = 0.1
	DEFAULT_MAX_EPISODES      = 30000
	DEFAULT_TOLERANCE         = 1e-4
	DEFAULT_CHECK_INTERVAL    = 1000
	DEFAULT_MAX_EPISODE_STEPS = 1000
)

// DefaultParams returns the default hyperparameters for gamma.
func DefaultParams(gamma float64) Params {
	return Params{
		Gamma:           gamma,
		Theta:           DEFAULT_THETA,
		MaxIterations:   DEFAULT_MAX_ITERATIONS,
		Alpha:           DEFAULT_ALPHA,
		Epsilon:         DEFAULT_EPSILON,
		MaxEpisodes:     DEFAULT_MAX_EPISODES,
		Tolerance:       DEFAULT_TOLERANCE,
		CheckInterval:   DEFAULT_CHECK_INTERVAL,
		MaxEpisodeSteps: DEFAULT_MAX_EPISODE_STEPS,
	}
}

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig encodes the experiment outside of code: the discount factors to sweep,
// the grid, the hyperparameters and the reporting reference states.
// Keys are snake_case since viper lowercases everything it reads.
type TrainingConfig struct {
	// Gammas are the discount factors to run every solver with, in report order.
	Gammas []float64 `yaml:"gammas"`
	// Seed seeds the random source of each gamma's worker (offset by the gamma's index).
	Seed     uint64 `yaml:"seed"`
	LogLevel string `yaml:"log_level"`
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `yaml:"hyper_params"`
	Grid        GridConfig       `yaml:"grid"`
	Reference   ReferenceConfig  `yaml:"reference"`
	Notes       []Note           `yaml:"notes"`
	// TrainingDeadline is a duration after which no further solver runs are started.
	TrainingDeadline map[string]string `yaml:"training_deadline"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

type GridConfig struct {
	Width  int               `yaml:"width"`
	Height int               `yaml:"height"`
	Cells  []grid_world.Cell `yaml:"cells"`
}

// ReferenceConfig names the states the summary reports on: Start is where policy traces
// begin, and the values of Start and Secondary are tabulated.
type ReferenceConfig struct {
	Start     grid_world.State `yaml:"start"`
	Secondary grid_world.State `yaml:"secondary"`
	MaxSteps  int              `yaml:"max_steps"`
}

// Note is a free-text remark printed next to a gamma's summary rows.
type Note struct {
	Gamma float64 `yaml:"gamma"`
	Note  string  `yaml:"note"`
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig error = errors.New("invalid config")

// Default returns the classic experiment: the reference grid, three discount factors,
// and the default hyperparameters.
func Default() *TrainingConfig {
	return &TrainingConfig{
		Gammas:   []float64{0.9, 0.5, 0.1},
		Seed:     7,
		LogLevel: "info",
		Grid: GridConfig{
			Width:  grid_world.REFERENCE_WIDTH,
			Height: grid_world.REFERENCE_HEIGHT,
			Cells:  append([]grid_world.Cell(nil), grid_world.ReferenceCells...),
		},
		Reference: ReferenceConfig{
			Start:     grid_world.State{X: 0, Y: 0},
			Secondary: grid_world.State{X: 1, Y: 0},
			MaxSteps:  6,
		},
		Notes: []Note{
			{Gamma: 0.9, Note: "Long-term planning"},
			{Gamma: 0.5, Note: "Moderate-term planning"},
			{Gamma: 0.1, Note: "Short-sighted planning"},
		},
	}
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// Params returns the solver inputs for gamma, filled from the hyperparameters.
func (cfg *TrainingConfig) Params(gamma float64) Params {
	return Params{
		Gamma:           gamma,
		Theta:           cfg.GetHyperParamOrDefault("theta", DEFAULT_THETA),
		MaxIterations:   int(cfg.GetHyperParamOrDefault("max_iterations", DEFAULT_MAX_ITERATIONS)),
		Alpha:           cfg.GetHyperParamOrDefault("alpha", DEFAULT_ALPHA),
		Epsilon:         cfg.GetHyperParamOrDefault("epsilon", DEFAULT_EPSILON),
		MaxEpisodes:     int(cfg.GetHyperParamOrDefault("max_episodes", DEFAULT_MAX_EPISODES)),
		Tolerance:       cfg.GetHyperParamOrDefault("tolerance", DEFAULT_TOLERANCE),
		CheckInterval:   int(cfg.GetHyperParamOrDefault("check_interval", DEFAULT_CHECK_INTERVAL)),
		MaxEpisodeSteps: int(cfg.GetHyperParamOrDefault("max_episode_steps", DEFAULT_MAX_EPISODE_STEPS)),
	}
}

// NoteFor returns the note configured for gamma, or the empty string.
func (cfg *TrainingConfig) NoteFor(gamma float64) string {
	for _, note := range cfg.Notes {
		if note.Gamma == gamma {
			return note.Note
		}
	}
	return ""
}

// GridWorld builds the configured grid.
func (cfg *TrainingConfig) GridWorld() (*grid_world.GridWorld, error) {
	return grid_world.New(cfg.Grid.Width, cfg.Grid.Height, cfg.Grid.Cells)
}

// Validate checks the config can drive a complete run.
func (cfg *TrainingConfig) Validate() error {
	if len(cfg.Gammas) == 0 {
		return fmt.Errorf("%w: at least one gamma is required", ErrInvalidConfig)
	}
	for _, gamma := range cfg.Gammas {
		if gamma <= 0 || gamma > 1 {
			return fmt.Errorf("%w: gamma %v outside (0,1]", ErrInvalidConfig, gamma)
		}
	}

	params := cfg.Params(cfg.Gammas[0])
	if params.Theta <= 0 || params.Tolerance <= 0 {
		return fmt.Errorf("%w: theta and tolerance must be positive", ErrInvalidConfig)
	}
	if params.MaxIterations <= 0 || params.MaxEpisodes <= 0 || params.CheckInterval <= 0 {
		return fmt.Errorf("%w: max_iterations, max_episodes and check_interval must be positive", ErrInvalidConfig)
	}
	if params.Alpha <= 0 || params.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v outside (0,1]", ErrInvalidConfig, params.Alpha)
	}
	if params.Epsilon < 0 || params.Epsilon > 1 {
		return fmt.Errorf("%w: epsilon %v outside [0,1]", ErrInvalidConfig, params.Epsilon)
	}

	gw, err := cfg.GridWorld()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(gw.NonTerminalStates()) == 0 {
		return fmt.Errorf("%w: grid has no non-terminal states", ErrInvalidConfig)
	}
	for _, s := range []grid_world.State{cfg.Reference.Start, cfg.Reference.Secondary} {
		if !gw.Contains(s) {
			return fmt.Errorf("%w: reference state %v outside the grid", ErrInvalidConfig, s)
		}
	}
	if _, err := cfg.trainingDeadline(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (cfg *TrainingConfig) trainingDeadline() (time.Duration, error) {
	val, ok := cfg.TrainingDeadline["duration"]
	if !ok {
		return 0, nil
	}
	return time.ParseDuration(val)
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	duration, err := cfg.trainingDeadline()
	if err != nil {
		return nil, nil, err
	}
	if duration > 0 {
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads the outer kind/def envelope with viper, and decodes def onto the
// defaults, so a config need only name what it changes.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	innerConfig := Default()
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	return innerConfig, nil
}
