package river

import (
	"math"
	"math/rand"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/spatial"
	"github.com/annel0/rivergen/internal/util"
	"github.com/annel0/rivergen/internal/vec"
)

// Пределы проекции начала сегмента на линию между серединами,
// за которыми изгиб к родителю выглядит неправильно.
const (
	minParentProjection = 0.2
	maxParentProjection = 0.8
)

// buildSegments разбивает узел на cfg.SegmentsInRiver частей.
// Внутренние точки излома смещаются перпендикулярно узлу на случайную величину
// в [-SegmentOffset, SegmentOffset]; первая и последняя части привязаны к концам узла.
func buildSegments(net *Network, cfg *config.RiverConfig, rng *rand.Rand, nodeID int32) {
	node := net.Node(nodeID)
	start, end := node.Start, node.End
	perpendicular := node.Direction().Perpendicular()
	count := cfg.SegmentsInRiver

	prev := start
	for i := 0; i < count; i++ {
		// Смещение тянется и для последней части, чтобы последовательность случайных чисел не зависела от позиции
		offset := -cfg.SegmentOffset + rng.Float64()*cfg.SegmentOffset*2

		segEnd := end
		if i < count-1 {
			segEnd = start.Lerp(end, float64(i+1)/float64(count)).Add(perpendicular.Mul(offset))
		}

		net.addSegment(nodeID, prev, segEnd)
		prev = segEnd
	}
}

// connectSegments связывает сегменты узла в цепочку и с последним сегментом родительского узла.
func connectSegments(net *Network, nodeID int32) {
	node := net.Node(nodeID)
	for i, segID := range node.Segments {
		switch {
		case i > 0:
			net.link(node.Segments[i-1], segID)
		case node.Parent != NoParent:
			net.link(net.LastSegment(node.Parent), segID)
		}
	}
}

// validateSegments помечает сегменты, которым нельзя изгибаться к родителю:
// родителя нет или начало сегмента проецируется на линию середин вне [0.2, 0.8].
func validateSegments(net *Network, nodeID int32) {
	for _, segID := range net.Node(nodeID).Segments {
		seg := net.Segment(segID)
		if seg.Parent == NoParent {
			seg.ParentInvalid = true
			continue
		}

		projection := util.Projection(seg.Start, seg.Mid, net.Segment(seg.Parent).Mid)
		if projection < minParentProjection || projection > maxParentProjection {
			seg.ParentInvalid = true
		}
	}
}

// segmentEnvelope охватывает концы сегмента и середины родителя и детей,
// расширяясь на максимальную ширину долины и реки, чтобы выборка не пропускала изгибы.
func segmentEnvelope(net *Network, cfg *config.RiverConfig, seg *Segment) spatial.Envelope {
	env := spatial.EnvelopeOf(seg.Start, seg.End)
	if seg.Parent != NoParent {
		env = env.ExtendPoint(net.Segment(seg.Parent).Mid)
	}
	for _, child := range seg.Children {
		env = env.ExtendPoint(net.Segment(child).Mid)
	}

	node := net.SegmentNode(seg)
	return env.Expand(cfg.MaxValleyWidth + math.Max(node.StartSize, node.EndSize))
}

// assignSizes распространяет ширину от концевых узлов к корню.
// Каждый концевой узел получает endSize = 1; родитель перезаписывается, только
// если его текущий startSize меньше startSize пришедшего потомка.
func assignSizes(net *Network, cfg *config.RiverConfig, riverID int32) {
	for _, nodeID := range net.River(riverID).Nodes {
		node := net.Node(nodeID)
		if !node.Terminal || node.IsLake {
			continue
		}

		setSize(node, 1, cfg)
		for child := node; child.Parent != NoParent; {
			parent := net.Node(child.Parent)
			if parent.StartSize >= child.StartSize {
				break
			}
			setSize(parent, child.StartSize, cfg)
			child = parent
		}
	}
}

func setSize(node *Node, endSize float64, cfg *config.RiverConfig) {
	node.EndSize = endSize
	node.StartSize = util.Clamp(endSize+cfg.RiverGrowth, cfg.MinSize, cfg.MaxSize)
}

// riverRadius - наибольшее целое расстояние от истока реки до конца любого сегмента плюс отступ.
func riverRadius(net *Network, cfg *config.RiverConfig, riverID int32) int {
	r := net.River(riverID)
	radius := 0
	for _, nodeID := range r.Nodes {
		for _, segID := range net.Node(nodeID).Segments {
			if d := int(r.Start.DistanceTo(net.Segment(segID).End)); d > radius {
				radius = d
			}
		}
	}
	return radius + cfg.RadiusPadding
}

// addLake пристраивает к концевому узлу неподвижное озеро с одним сегментом.
func addLake(net *Network, cfg *config.RiverConfig, rng *rand.Rand, parentID int32) int32 {
	parent := net.Node(parentID)
	parent.EndSize = cfg.MinSize / 2
	parent.Terminal = false

	lakeSize := float64(cfg.LakeMinSize + intn(rng, cfg.LakeMaxSize-cfg.LakeMinSize))

	angle := util.NormalToDegrees(parent.Direction())
	start := parent.End
	end := start.Add(util.DegreesToNormal(angle).Mul(cfg.LakeLength))
	startSize := parent.EndSize
	riverID := parent.River
	lastSeg := net.LastSegment(parentID)

	lakeID := net.addNode(riverID, parentID, start, end, cfg.RiverPaddingBlocks)
	lake := net.Node(lakeID)
	lake.StartSize = startSize
	lake.EndSize = lakeSize
	lake.IsLake = true
	lake.Speed = 0

	segID := net.addSegment(lakeID, start, end)
	net.link(lastSeg, segID)
	net.Segment(segID).ParentInvalid = true
	// У последнего сегмента родителя теперь есть потомок, изгиб к его собственному родителю разрешен
	net.Segment(lastSeg).ParentInvalid = false

	return lakeID
}

// intn возвращает случайное число в [0, n), для n <= 0 возвращает 0.
func intn(rng *rand.Rand, n int) int {
	if n <= 0 {
		return 0
	}
	return rng.Intn(n)
}

// pointsEqual сравнивает точки побитово, как это нужно для исключения соседних узлов
func pointsEqual(a, b vec.Vec2Float) bool {
	return a.X == b.X && a.Y == b.Y
}
