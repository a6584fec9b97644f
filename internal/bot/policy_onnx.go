package bot

import (
	"fmt"
	"log"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"gorgonia.org/tensor"

	"github.com/pellston/hexhammer/pkg/engine"
	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// Action channels in the policy head, one score per hex per channel.
const (
	chanMoveTo = iota
	chanShootTarget
	chanChargeTo
	chanFightTarget
	chanSkip
	numActionChannels
)

// newOnnxOrFallback attempts to load the ONNX policy. On failure it falls
// back to greedy so a match can always proceed.
func newOnnxOrFallback(modelPath string, seed int64) Policy {
	p, err := NewOnnxPolicy(modelPath, seed)
	if err != nil {
		log.Printf("bot: onnx policy requested but model load failed: %v; falling back to greedy", err)
		return NewGreedyPolicy(seed)
	}
	return p
}

// OnnxPolicy runs a policy network through gonnx (pure Go ONNX runtime).
// The model scores every (hex, action channel) pair; the policy picks the
// highest-scoring legal action. Inference failures fall back to greedy for
// that activation.
type OnnxPolicy struct {
	model    *gonnx.Model
	fallback *GreedyPolicy
	mu       sync.Mutex
}

// NewOnnxPolicy loads the policy model from the given path.
func NewOnnxPolicy(modelPath string, seed int64) (*OnnxPolicy, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("no model path configured")
	}
	model, err := gonnx.NewModelFromFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", modelPath, err)
	}
	return &OnnxPolicy{model: model, fallback: NewGreedyPolicy(seed)}, nil
}

func (p *OnnxPolicy) Name() string { return "onnx" }

func (p *OnnxPolicy) ChooseAction(c *engine.Controller, side engine.Player) engine.Action {
	logits := p.runPolicy(c.State(), side)
	if logits == nil {
		return p.fallback.ChooseAction(c, side)
	}
	a, ok := p.decodeBest(c, side, logits)
	if !ok {
		return p.fallback.ChooseAction(c, side)
	}
	return a
}

// runPolicy encodes the state and runs the model, returning flat logits of
// shape (MaxHexes, numActionChannels), or nil on failure.
func (p *OnnxPolicy) runPolicy(gs *engine.GameState, side engine.Player) []float32 {
	boardData, ok := EncodeBoard(gs, side)
	if !ok {
		log.Printf("bot/onnx: board exceeds encoder geometry")
		return nil
	}

	boardTensor := tensor.New(
		tensor.WithShape(1, MaxHexes, NumFeatures),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(boardData),
	)
	sideTensor := tensor.New(
		tensor.WithShape(1),
		tensor.Of(tensor.Int64),
		tensor.WithBacking([]int64{int64(side)}),
	)

	inputs := gonnx.Tensors{
		"board": boardTensor,
		"side":  sideTensor,
	}

	p.mu.Lock()
	outputs, err := p.model.Run(inputs)
	p.mu.Unlock()
	if err != nil {
		log.Printf("bot/onnx: policy run error: %v", err)
		return nil
	}

	out, ok := outputs["action_logits"]
	if !ok {
		log.Printf("bot/onnx: output 'action_logits' not found")
		return nil
	}

	switch d := out.Data().(type) {
	case []float32:
		return d
	case []float64:
		f32 := make([]float32, len(d))
		for i, v := range d {
			f32[i] = float32(v)
		}
		return f32
	default:
		log.Printf("bot/onnx: unexpected output type %T", out.Data())
		return nil
	}
}

// decodeBest scans every legal candidate action of every eligible unit and
// returns the one with the highest logit.
func (p *OnnxPolicy) decodeBest(c *engine.Controller, side engine.Player, logits []float32) (engine.Action, bool) {
	gs := c.State()
	cfg := gs.Board.Config()
	if len(logits) < MaxHexes*numActionChannels {
		log.Printf("bot/onnx: logits too short: %d", len(logits))
		return engine.Action{}, false
	}
	score := func(pos hexgrid.Coord, channel int) float32 {
		idx := HexIndex(cfg, pos)
		if idx < 0 {
			return 0
		}
		return logits[idx*numActionChannels+channel]
	}

	ids := eligibleFor(c, side, gs.Phase)
	if len(ids) == 0 {
		return engine.Action{}, false
	}

	best := engine.Action{}
	bestScore := float32(0)
	found := false
	consider := func(a engine.Action, s float32) {
		if !found || s > bestScore {
			best, bestScore, found = a, s, true
		}
	}

	for _, id := range ids {
		u := gs.Unit(id)
		switch gs.Phase {
		case engine.PhaseMove:
			consider(skipUnit(id), score(u.Pos, chanSkip))
			for _, d := range c.MoveDestinations(id) {
				consider(engine.Action{Kind: engine.ActionMove, UnitID: id, Dest: d}, score(d, chanMoveTo))
			}
		case engine.PhaseShoot:
			consider(skipUnit(id), score(u.Pos, chanSkip))
			for _, ve := range shootTargets(c, u) {
				target := gs.Unit(ve.UnitID)
				consider(engine.Action{Kind: engine.ActionShoot, UnitID: id, TargetID: target.ID}, score(target.Pos, chanShootTarget))
			}
		case engine.PhaseCharge:
			consider(skipUnit(id), score(u.Pos, chanSkip))
			for _, d := range c.ChargeDestinations(id) {
				consider(engine.Action{Kind: engine.ActionCharge, UnitID: id, Dest: d}, score(d, chanChargeTo))
			}
		case engine.PhaseFight:
			for _, enemy := range gs.UnitsOf(side.Opponent()) {
				if hexgrid.Distance(u.Pos, enemy.Pos) > u.MeleeRange() {
					continue
				}
				consider(engine.Action{Kind: engine.ActionFight, UnitID: id, TargetID: enemy.ID}, score(enemy.Pos, chanFightTarget))
			}
		}
	}
	return best, found
}
