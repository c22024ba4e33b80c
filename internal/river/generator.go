package river

import (
	"math/rand"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/spatial"
	"github.com/annel0/rivergen/internal/util"
	"github.com/annel0/rivergen/internal/vec"
)

// seedHops - сколько раз исток может перескочить к более высокой зоне при выборе направления
const seedHops = 8

// nodeRef - запись индекса узлов для отбраковки пересечений между реками.
type nodeRef struct {
	id    int32
	river int32
	env   spatial.Envelope
}

func (r nodeRef) Bounds() spatial.Envelope { return r.env }

// segmentRef - запись индекса сегментов, по которому выборка ищет кандидатов.
type segmentRef struct {
	id  int32
	env spatial.Envelope
}

func (r segmentRef) Bounds() spatial.Envelope { return r.env }

// growthRequest - отложенная попытка вырастить один узел.
type growthRequest struct {
	angle      float64
	start      vec.Vec2Float
	stage      int
	parent     int32
	river      int32
	errorLevel int // сколько еще раз можно пойти под уклон
}

// builder выращивает речную сеть одного региона.
// Рост идет через очередь FIFO, рекурсии нет.
type builder struct {
	cfg        *config.RiverConfig
	rng        *rand.Rand
	zones      *ZoneField
	net        *Network
	nodeIndex  *spatial.RTree[nodeRef]
	queue      []growthRequest
	regionSize float64
	logger     *logging.Logger
}

func newBuilder(cfg *config.RiverConfig, rng *rand.Rand, zones *ZoneField) *builder {
	return &builder{
		cfg:        cfg,
		rng:        rng,
		zones:      zones,
		net:        &Network{},
		nodeIndex:  spatial.New[nodeRef](0),
		regionSize: float64(cfg.RegionSize()),
		logger:     logging.GetRiversLogger(),
	}
}

// seedRivers обходит прибрежные зоны (X снаружи, Z внутри) и с вероятностью riverSpawnChance
// пытается начать в каждой реку, направленную к более высокой местности.
// Первые узлы всех рек растут сразу, остальные узлы из общей очереди по одному на реку в порядке поступления.
func (b *builder) seedRivers() {
	size := b.zones.Size()
	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			zone := b.zones.At(x, z)
			if !zone.Coastal || b.rng.Float64() >= b.cfg.RiverSpawnChance {
				continue
			}

			target := b.zones.FindHighest(zone, seedHops)
			angle := util.NormalToDegrees(target.Center.Sub(zone.Center).Normalized())

			riverID := b.net.addRiver(zone.Center)
			first := growthRequest{
				angle:      angle,
				start:      zone.Center,
				parent:     NoParent,
				river:      riverID,
				errorLevel: b.cfg.DownhillError,
			}
			if !b.grow(first) {
				// Река не смогла сделать даже первый шаг
				b.net.Rivers = b.net.Rivers[:riverID]
			}
		}
	}

	b.drain()

	for i := range b.net.Rivers {
		r := b.net.River(int32(i))
		b.logger.Trace("Река %d из (%.0f, %.0f): %d узлов", r.ID, r.Start.X, r.Start.Y, len(r.Nodes))
	}
}

// drain обрабатывает очередь роста до опустошения
func (b *builder) drain() {
	for len(b.queue) > 0 {
		req := b.queue[0]
		b.queue = b.queue[1:]
		b.grow(req)
	}
	b.queue = b.queue[:0]
}

// grow пытается вырастить один узел. Возвращает false, если сработало хоть одно правило отбраковки;
// в этом случае ветвь просто заканчивается.
func (b *builder) grow(req growthRequest) bool {
	cfg := b.cfg
	if req.stage > cfg.MaxNodes {
		return false
	}

	length := cfg.MinLength + float64(intn(b.rng, cfg.LengthVariation))
	end := req.start.Add(util.DegreesToNormal(req.angle).Mul(length))

	// Удлиненная линия не дает ветвям подходить к своей же реке вплотную
	delta := end.Add(end.Sub(req.start).Mul(0.5))
	for _, nodeID := range b.net.River(req.river).Nodes {
		node := b.net.Node(nodeID)
		if pointsEqual(req.start, node.End) || pointsEqual(req.start, node.Start) {
			continue
		}
		if util.LineIntersects(req.start, delta, node.Start, node.End) {
			return false
		}
	}

	if end.X < 0 || end.Y < 0 || end.X > b.regionSize || end.Y > b.regionSize {
		return false
	}

	startZone := b.zones.ZoneAt(req.start)
	endZone := b.zones.ZoneAt(end)
	if startZone.OceanDistance > endZone.OceanDistance {
		if req.errorLevel == 0 {
			return false
		}
		req.errorLevel--
	}

	if endZone.Ocean && req.stage > 2 {
		return false
	}

	env := paddedEnvelope(req.start, end, cfg.RiverPaddingBlocks)
	for _, hit := range b.nodeIndex.Search(env) {
		if hit.river != req.river {
			return false
		}
	}

	nodeID := b.addNode(req.river, req.parent, req.start, end)

	next := growthRequest{
		start:      end,
		stage:      req.stage + 1,
		parent:     nodeID,
		river:      req.river,
		errorLevel: req.errorLevel,
	}

	if b.rng.Float64() < cfg.RiverSplitChance && req.parent != NoParent {
		left, right := next, next
		left.angle = req.angle + cfg.MinForkAngle + float64(intn(b.rng, cfg.ForkVariation))
		right.angle = req.angle - (cfg.MinForkAngle + float64(intn(b.rng, cfg.ForkVariation)))
		b.queue = append(b.queue, left, right)
		return true
	}

	sign := 0
	for sign == 0 {
		sign = -1 + intn(b.rng, 3)
	}
	next.angle = req.angle - float64(intn(b.rng, cfg.NormalAngle)*sign)
	b.queue = append(b.queue, next)
	return true
}

// addNode создает узел с сегментами и вносит его в индекс узлов
func (b *builder) addNode(riverID, parentID int32, start, end vec.Vec2Float) int32 {
	nodeID := b.net.addNode(riverID, parentID, start, end, b.cfg.RiverPaddingBlocks)
	buildSegments(b.net, b.cfg, b.rng, nodeID)
	connectSegments(b.net, nodeID)
	validateSegments(b.net, nodeID)

	node := b.net.Node(nodeID)
	b.nodeIndex.Insert(nodeRef{id: nodeID, river: riverID, env: node.Envelope})

	if parentID != NoParent {
		b.net.Node(parentID).Terminal = false
	}
	return nodeID
}

// finish отбрасывает короткие реки, распространяет ширину, считает радиусы и добавляет озера
func (b *builder) finish() {
	for i := range b.net.Rivers {
		r := b.net.River(int32(i))

		if len(r.Nodes) < b.cfg.MinNodes {
			r.Discarded = true
			for _, nodeID := range r.Nodes {
				node := b.net.Node(nodeID)
				b.nodeIndex.Delete(nodeRef{id: nodeID, river: r.ID, env: node.Envelope})
			}
			b.logger.Trace("Река %d отброшена: %d узлов < %d", r.ID, len(r.Nodes), b.cfg.MinNodes)
			continue
		}

		assignSizes(b.net, b.cfg, r.ID)
		r.Radius = riverRadius(b.net, b.cfg, r.ID)

		terminals := make([]int32, 0, 4)
		for _, nodeID := range r.Nodes {
			if b.net.Node(nodeID).Terminal {
				terminals = append(terminals, nodeID)
			}
		}
		for _, nodeID := range terminals {
			if b.rng.Float64() < b.cfg.LakeChance {
				addLake(b.net, b.cfg, b.rng, nodeID)
			}
		}
	}
}

// indexSegments вычисляет охватывающие прямоугольники сегментов живых рек
// и загружает их в индекс одним пакетом.
func indexSegments(net *Network, cfg *config.RiverConfig) *spatial.RTree[segmentRef] {
	refs := make([]segmentRef, 0, len(net.Segments))
	for i := range net.Rivers {
		r := net.River(int32(i))
		if r.Discarded {
			continue
		}
		for _, nodeID := range r.Nodes {
			for _, segID := range net.Node(nodeID).Segments {
				seg := net.Segment(segID)
				seg.Envelope = segmentEnvelope(net, cfg, seg)
				refs = append(refs, segmentRef{id: segID, env: seg.Envelope})
			}
		}
	}

	tree := spatial.New[segmentRef](0)
	tree.BulkLoad(refs)
	return tree
}
