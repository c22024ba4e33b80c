package river

import (
	"fmt"

	"github.com/annel0/rivergen/internal/vec"
)

// DebugView - набор точек для визуализации региона
type DebugView string

const (
	DebugStarts  DebugView = "starts"  // истоки живых рек
	DebugFull    DebugView = "full"    // концы всех сегментов живых рек
	DebugLand    DebugView = "land"    // центры зон суши
	DebugOcean   DebugView = "ocean"   // центры океанских зон
	DebugCoastal DebugView = "coastal" // центры прибрежных зон
)

// ParseDebugView проверяет имя представления
func ParseDebugView(name string) (DebugView, error) {
	switch v := DebugView(name); v {
	case DebugStarts, DebugFull, DebugLand, DebugOcean, DebugCoastal:
		return v, nil
	}
	return "", fmt.Errorf("неизвестное представление %q", name)
}

// DebugPoint - точка в мировых координатах
type DebugPoint struct {
	X    float64 `json:"x"`
	Z    float64 `json:"z"`
	Size float64 `json:"size,omitempty"`
}

// Debug возвращает точки выбранного представления
func (r *Region) Debug(view DebugView) []DebugPoint {
	var points []DebugPoint
	add := func(p vec.Vec2Float, size float64) {
		points = append(points, DebugPoint{X: p.X + r.Origin.X, Z: p.Y + r.Origin.Y, Size: size})
	}

	switch view {
	case DebugStarts:
		for _, river := range r.ActiveRivers() {
			add(river.Start, 0)
		}
	case DebugFull:
		for _, river := range r.ActiveRivers() {
			for _, nodeID := range river.Nodes {
				node := r.Network.Node(nodeID)
				for _, segID := range node.Segments {
					seg := r.Network.Segment(segID)
					add(seg.Start, node.StartSize)
					add(seg.End, node.EndSize)
				}
			}
		}
	case DebugLand, DebugOcean, DebugCoastal:
		size := r.Zones.Size()
		for x := 0; x < size; x++ {
			for z := 0; z < size; z++ {
				zone := r.Zones.At(x, z)
				if (view == DebugOcean && zone.Ocean) ||
					(view == DebugCoastal && zone.Coastal) ||
					(view == DebugLand && !zone.Ocean) {
					add(zone.Center, 0)
				}
			}
		}
	}
	return points
}
