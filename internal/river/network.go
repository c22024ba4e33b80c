package river

import (
	"github.com/annel0/rivergen/internal/spatial"
	"github.com/annel0/rivergen/internal/vec"
)

// NoParent обозначает отсутствие родителя у узла или сегмента
const NoParent int32 = -1

// River - одна связная ветвящаяся речная сеть.
type River struct {
	ID        int32
	Start     vec.Vec2Float // центр прибрежной зоны, из которой выросла река
	Nodes     []int32       // узлы в порядке роста, озера в конце
	Radius    int
	Discarded bool // меньше minNodes узлов, в выборку не попадает
}

// Node - прямой участок ствола реки до разбиения на сегменты.
type Node struct {
	ID        int32
	River     int32
	Parent    int32 // NoParent у корня
	Start     vec.Vec2Float
	End       vec.Vec2Float
	StartSize float64
	EndSize   float64
	Speed     float64
	IsLake    bool
	Terminal  bool // у узла нет дочерних узлов
	Segments  []int32
	Envelope  spatial.Envelope // с отступом riverPaddingBlocks, только для отбраковки пересечений
}

// Direction возвращает единичный вектор от начала к концу узла
func (n *Node) Direction() vec.Vec2Float {
	return n.End.Sub(n.Start).Normalized()
}

// Segment - одна из смещенных вбок частей узла.
// Родителем первого сегмента узла является последний сегмент родительского узла.
type Segment struct {
	ID            int32
	Node          int32
	Start         vec.Vec2Float
	End           vec.Vec2Float
	Mid           vec.Vec2Float
	Parent        int32
	Children      []int32
	ParentInvalid bool             // не изгибаться к родителю
	Envelope      spatial.Envelope // вычисляется после построения всего дерева
}

// Network хранит реки, узлы и сегменты региона в плоских массивах.
// Связи между элементами задаются индексами, а не указателями.
type Network struct {
	Rivers   []River
	Nodes    []Node
	Segments []Segment
}

// Node возвращает узел по индексу
func (n *Network) Node(id int32) *Node {
	return &n.Nodes[id]
}

// Segment возвращает сегмент по индексу
func (n *Network) Segment(id int32) *Segment {
	return &n.Segments[id]
}

// River возвращает реку по индексу
func (n *Network) River(id int32) *River {
	return &n.Rivers[id]
}

// SegmentNode возвращает узел, которому принадлежит сегмент
func (n *Network) SegmentNode(seg *Segment) *Node {
	return &n.Nodes[seg.Node]
}

// LastSegment возвращает индекс последнего сегмента узла
func (n *Network) LastSegment(nodeID int32) int32 {
	segs := n.Nodes[nodeID].Segments
	return segs[len(segs)-1]
}

func (n *Network) addRiver(start vec.Vec2Float) int32 {
	id := int32(len(n.Rivers))
	n.Rivers = append(n.Rivers, River{ID: id, Start: start})
	return id
}

func (n *Network) addNode(riverID, parentID int32, start, end vec.Vec2Float, padding float64) int32 {
	id := int32(len(n.Nodes))
	n.Nodes = append(n.Nodes, Node{
		ID:       id,
		River:    riverID,
		Parent:   parentID,
		Start:    start,
		End:      end,
		Speed:    1,
		Terminal: true,
		Envelope: paddedEnvelope(start, end, padding),
	})
	n.Rivers[riverID].Nodes = append(n.Rivers[riverID].Nodes, id)
	return id
}

func (n *Network) addSegment(nodeID int32, start, end vec.Vec2Float) int32 {
	id := int32(len(n.Segments))
	n.Segments = append(n.Segments, Segment{
		ID:     id,
		Node:   nodeID,
		Start:  start,
		End:    end,
		Mid:    start.Add(end.Sub(start).Mul(0.5)),
		Parent: NoParent,
	})
	n.Nodes[nodeID].Segments = append(n.Nodes[nodeID].Segments, id)
	return id
}

// link делает parent родителем сегмента child
func (n *Network) link(parent, child int32) {
	n.Segments[child].Parent = parent
	n.Segments[parent].Children = append(n.Segments[parent].Children, child)
}

// paddedEnvelope - прямоугольник линии, расширенный на padding во все стороны
func paddedEnvelope(start, end vec.Vec2Float, padding float64) spatial.Envelope {
	return spatial.EnvelopeOf(start, end).Expand(padding)
}
