package river

import (
	"math"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/util"
	"github.com/annel0/rivergen/internal/vec"
)

const (
	// NoRiverDistance - расстояние в выборке, рядом с которой нет ни одного сегмента
	NoRiverDistance = 5000.0
	// NoFlow - значение компонент течения там, где течения нет.
	// Отличается от нулевого течения на озере.
	NoFlow = -100.0

	lakeClosest = -100.0 // после озера течение больше не переписывается

	distortSaltX int64 = 0x52495645 // "RIVE"
	distortSaltZ int64 = 0x524b5a31
)

// Sample - результат выборки для одной точки.
type Sample struct {
	RiverDistance float64 `json:"river_distance"` // 0 внутри русла
	BankFactor    float64 `json:"bank_factor"`    // глубина вреза в блоках
	FlowX         float64 `json:"flow_x"`
	FlowZ         float64 `json:"flow_z"`
}

// HasFlow сообщает, было ли течение назначено хоть одним сегментом
func (s Sample) HasFlow() bool {
	return s.FlowX > NoFlow
}

func emptySample() Sample {
	return Sample{RiverDistance: NoRiverDistance, FlowX: NoFlow, FlowZ: NoFlow}
}

// Sampler смешивает вклад сегментов-кандидатов в одну выборку.
// Все поля только читаются, один экземпляр обслуживает любое число горутин.
type Sampler struct {
	noiseX     *util.OctaveNoise
	noiseZ     *util.OctaveNoise
	strength   float64
	riverDepth float64
	baseDepth  float64
}

// NewSampler создает семплер. Шум искажения зависит только от worldSeed,
// поэтому берега непрерывны на границах регионов.
func NewSampler(cfg *config.RiverConfig, worldSeed int64) *Sampler {
	scale := cfg.HeightScale()
	return &Sampler{
		noiseX:     util.NewOctaveNoise(util.CombineSeeds(worldSeed, distortSaltX), cfg.RiverFrequency, cfg.RiverOctaves, cfg.RiverGain, cfg.RiverLacunarity),
		noiseZ:     util.NewOctaveNoise(util.CombineSeeds(worldSeed, distortSaltZ), cfg.RiverFrequency, cfg.RiverOctaves, cfg.RiverGain, cfg.RiverLacunarity),
		strength:   cfg.RiverDistortionStrength,
		riverDepth: cfg.RiverDepth * scale,
		baseDepth:  cfg.BaseDepth * scale,
	}
}

// Distort смещает мировую точку шумом искажения
func (s *Sampler) Distort(x, z float64) (float64, float64) {
	if s.strength == 0 {
		return x, z
	}
	return x + s.noiseX.Noise2D(x, z)*s.strength, z + s.noiseZ.Noise2D(x, z)*s.strength
}

// sampleState - промежуточное состояние одной выборки, живет на стеке вызова
type sampleState struct {
	out     Sample
	closest float64
}

// Sample вычисляет выборку в локальной точке p (уже искаженной) по сегментам segs.
func (s *Sampler) Sample(net *Network, segs []int32, p vec.Vec2Float) Sample {
	st := sampleState{out: emptySample(), closest: math.Inf(1)}

	for _, segID := range segs {
		seg := net.Segment(segID)
		node := net.SegmentNode(seg)
		size := util.Lerp(node.StartSize, node.EndSize, util.Projection(p, node.Start, node.End))

		if util.Projection(p, seg.Start, seg.End) > 0.5 {
			if len(seg.Children) == 0 {
				s.accumulate(&st, p, node, seg.Start, seg.End, size)
				continue
			}
			for _, childID := range seg.Children {
				s.sampleChild(&st, net, p, seg, node, net.Segment(childID), size)
			}
			continue
		}

		if seg.Parent == NoParent {
			s.accumulate(&st, p, node, seg.Start, seg.End, size)
			continue
		}
		s.sampleParent(&st, net, p, seg, node, net.Segment(seg.Parent), size)
	}

	return st.out
}

// sampleChild изгибает вторую половину сегмента к началу дочернего сегмента
func (s *Sampler) sampleChild(st *sampleState, net *Network, p vec.Vec2Float, seg *Segment, node *Node, child *Segment, size float64) {
	midProj := util.Projection(p, seg.Mid, child.Mid)
	if child.ParentInvalid {
		midProj = 0
	}

	childNode := net.SegmentNode(child)
	if childNode.StartSize < node.EndSize {
		size = util.Lerp(childNode.StartSize, childNode.EndSize, 0.5)
	}

	start := seg.Mid.Lerp(child.Start, midProj)
	end := seg.End.Lerp(child.Mid, midProj)
	s.accumulate(st, p, node, start, end, size)
}

// sampleParent изгибает первую половину сегмента к середине родительского сегмента
func (s *Sampler) sampleParent(st *sampleState, net *Network, p vec.Vec2Float, seg *Segment, node *Node, parent *Segment, size float64) {
	midProj := util.Projection(p, seg.Mid, parent.Mid)
	if seg.ParentInvalid {
		midProj = 0
	}

	start := seg.Start.Lerp(parent.Mid, midProj)
	end := seg.Mid.Lerp(parent.End, midProj)
	s.accumulate(st, p, node, start, end, size)
}

// accumulate добавляет вклад одной линии: глубину и течение внутри русла,
// расстояние до кромки снаружи.
func (s *Sampler) accumulate(st *sampleState, p vec.Vec2Float, node *Node, start, end vec.Vec2Float, size float64) {
	d := util.DistanceToLine(p, start, end)

	if d > size {
		st.out.RiverDistance = math.Min(st.out.RiverDistance, math.Max(d-size, 0))
		return
	}

	if node.IsLake {
		st.closest = lakeClosest
		st.out.FlowX, st.out.FlowZ = 0, 0
	}
	if d < st.closest {
		st.out.FlowX, st.out.FlowZ = flowVector(start, end, node.Speed)
		st.closest = d
	}

	st.out.RiverDistance = 0

	t := util.InverseLerp(d, size, 0)
	t = math.Sqrt(1 - (1-t)*(1-t))
	bank := math.Max(math.Sqrt(size)*s.riverDepth, s.baseDepth) * t
	st.out.BankFactor = math.Max(bank, st.out.BankFactor)
}

// flowVector направляет течение от конца линии к ее началу, то есть к устью.
// Компоненты округляются до десятых, чтобы соседние колонки получали одинаковое течение.
func flowVector(start, end vec.Vec2Float, speed float64) (float64, float64) {
	dir := start.Sub(end).Normalized()
	dir = vec.Vec2Float{X: util.RoundTo(dir.X, 1), Y: util.RoundTo(dir.Y, 1)}.Normalized()
	return dir.X * speed, dir.Y * speed
}
